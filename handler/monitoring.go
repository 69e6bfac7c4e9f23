package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	C "marketpulse/config"
)

// HealthHandler reports liveness plus db connectivity.
func HealthHandler(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if err := C.GetServices().Db.DB().Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "service": C.GetConfig().AppName})
}
