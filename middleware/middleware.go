package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	U "marketpulse/util"
)

// scope constants.
const SCOPE_REQ_ID = "reqId"

// cors prefix constants.
const PREFIX_PATH_SDK = "/sdk/"

// SetScopeRequestId tags every request with a short unique id, carried on
// the gin scope and echoed on the response for log correlation.
func SetScopeRequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Req-Id")
		if requestID == "" {
			requestID = U.GetRequestID()
		}
		U.SetScope(c, SCOPE_REQ_ID, requestID)
		c.Writer.Header().Set("X-Req-Id", requestID)

		c.Next()
	}
}

// CustomCors for customised cors configuration based on conditions. SDK
// ingest endpoints accept any origin; the rest only the app/api domains.
func CustomCors() gin.HandlerFunc {
	return func(c *gin.Context) {
		corsConfig := cors.DefaultConfig()

		if strings.HasPrefix(c.Request.URL.Path, PREFIX_PATH_SDK) {
			corsConfig.AllowAllOrigins = true
			cors.New(corsConfig)(c)
		} else {
			if C.IsDevelopment() {
				corsConfig.AllowAllOrigins = true
			} else {
				config := C.GetConfig()
				corsConfig.AllowOrigins = []string{
					"https://" + config.APPDomain,
					"https://" + config.APIDomain,
				}
			}
			corsConfig.AllowCredentials = true
			cors.New(corsConfig)(c)
		}

		c.Next()
	}
}

// Logger logs one line per request with latency, in the logrus format the
// rest of the services use.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"req_id":  U.GetScopeByKeyAsString(c, SCOPE_REQ_ID),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(startTime).String(),
		}).Info("Processed request.")
	}
}
