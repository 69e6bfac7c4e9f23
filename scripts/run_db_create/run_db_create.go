package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	storePostgres "marketpulse/model/store/postgres"
)

// Creates or updates the attribution tables. Development convenience; not
// for production schema changes.
func main() {
	env := flag.String("env", C.DEVELOPMENT, "")

	dbHost := flag.String("db_host", "localhost", "")
	dbPort := flag.Int("db_port", 5432, "")
	dbUser := flag.String("db_user", "marketpulse", "")
	dbName := flag.String("db_name", "marketpulse", "")
	dbPass := flag.String("db_pass", "marketpulse", "")

	flag.Parse()

	config := &C.Configuration{
		AppName: "run_db_create",
		Env:     *env,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
		},
	}

	if err := C.InitConf(config); err != nil {
		log.WithError(err).Fatal("Failed to initialize config.")
	}
	if err := C.InitDB(config.DBInfo); err != nil {
		log.WithError(err).Fatal("Failed to initialize db.")
	}

	store := &storePostgres.Postgres{}
	if err := store.Migrate(); err != nil {
		log.WithError(err).Fatal("Failed to migrate.")
	}
	log.Info("Migrated attribution tables.")
}
