package main

import (
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	H "marketpulse/handler"
	"marketpulse/metrics"
)

// ./app --env=development --api_http_port=8080 --db_host=localhost --db_port=5432 --db_user=marketpulse --db_name=marketpulse --db_pass=marketpulse --redis_host=localhost --redis_port=6379
func main() {
	env := flag.String("env", C.DEVELOPMENT, "")
	port := flag.Int("api_http_port", 8080, "")

	dbHost := flag.String("db_host", "localhost", "")
	dbPort := flag.Int("db_port", 5432, "")
	dbUser := flag.String("db_user", "marketpulse", "")
	dbName := flag.String("db_name", "marketpulse", "")
	dbPass := flag.String("db_pass", "marketpulse", "")

	redisHost := flag.String("redis_host", "localhost", "")
	redisPort := flag.Int("redis_port", 6379, "")

	apiDomain := flag.String("api_domain", "api.marketpulse-dev.com", "")
	appDomain := flag.String("app_domain", "app.marketpulse-dev.com", "")

	gcpProjectID := flag.String("gcp_project_id", "", "Project id of the gcp project.")
	gcpProjectLocation := flag.String("gcp_project_location", "", "Location of the gcp project.")

	flag.Parse()

	config := &C.Configuration{
		AppName: "attribution_api",
		Env:     *env,
		Port:    *port,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
		},
		RedisHost: *redisHost,
		RedisPort: *redisPort,
		APIDomain: *apiDomain,
		APPDomain: *appDomain,
	}

	if err := C.InitConf(config); err != nil {
		log.WithError(err).Fatal("Failed to initialize config.")
	}
	if err := C.InitDB(config.DBInfo); err != nil {
		log.WithError(err).Fatal("Failed to initialize db.")
	}
	C.InitRedis(config.RedisHost, config.RedisPort)
	metrics.InitMetrics(config.Env, config.AppName, *gcpProjectID, *gcpProjectLocation)

	if !C.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	H.InitRoutes(r)

	log.WithField("port", config.Port).Info("Starting attribution api.")
	if err := r.Run(fmt.Sprintf(":%d", config.Port)); err != nil {
		log.WithError(err).Fatal("Failed to run server.")
	}
}
