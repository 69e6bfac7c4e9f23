package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/metrics"
	"marketpulse/task/attribution"
)

// ./run_attribution --env=development --db_host=localhost --db_port=5432 --db_user=marketpulse --db_name=marketpulse --db_pass=marketpulse --redis_host=localhost --redis_port=6379 --num_routines=4
func main() {
	env := flag.String("env", C.DEVELOPMENT, "")

	dbHost := flag.String("db_host", "localhost", "")
	dbPort := flag.Int("db_port", 5432, "")
	dbUser := flag.String("db_user", "marketpulse", "")
	dbName := flag.String("db_name", "marketpulse", "")
	dbPass := flag.String("db_pass", "marketpulse", "")

	redisHost := flag.String("redis_host", "localhost", "")
	redisPort := flag.Int("redis_port", 6379, "")

	numRoutines := flag.Int("num_routines", 4, "Number of journey scoring workers.")
	batchSize := flag.Int("batch_size", 5000, "Max journeys picked per run.")
	inactivityWindowDays := flag.Int("inactivity_window_days", 30,
		"Active journeys without events for this many days are abandoned.")

	gcpProjectID := flag.String("gcp_project_id", "", "Project id of the gcp project.")
	gcpProjectLocation := flag.String("gcp_project_location", "", "Location of the gcp project.")

	flag.Parse()

	config := &C.Configuration{
		AppName: "run_attribution",
		Env:     *env,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
		},
		RedisHost: *redisHost,
		RedisPort: *redisPort,
	}

	if err := C.InitConf(config); err != nil {
		log.WithError(err).Fatal("Failed to initialize config.")
	}
	if err := C.InitDB(config.DBInfo); err != nil {
		log.WithError(err).Fatal("Failed to initialize db.")
	}
	C.InitRedis(config.RedisHost, config.RedisPort)
	metrics.InitMetrics(config.Env, config.AppName, *gcpProjectID, *gcpProjectLocation)

	configs := map[string]interface{}{
		"num_routines":           *numRoutines,
		"batch_size":             *batchSize,
		"inactivity_window_days": *inactivityWindowDays,
	}
	status, success := attribution.RunAttribution(configs)
	log.WithFields(log.Fields{"status": status, "success": success}).
		Info("Finished attribution run.")
	if !success {
		os.Exit(1)
	}
}
