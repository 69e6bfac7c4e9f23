package postgres

import (
	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/model/model"
)

// Postgres implements the store.Model interface on gorm/postgres.
type Postgres struct{}

// Migrate creates or updates the engine's tables. Used by the db create
// script and tests; production schema changes go through migrations.
func (store *Postgres) Migrate() error {
	db := C.GetServices().Db

	err := db.AutoMigrate(
		&model.Journey{},
		&model.Touchpoint{},
		&model.AttributionModel{},
		&model.AttributionResult{},
		&model.AttributionInsight{},
		&model.Campaign{},
		&model.JobWatermark{},
	).Error
	if err != nil {
		log.WithError(err).Error("Failed to auto migrate attribution tables.")
	}
	return err
}
