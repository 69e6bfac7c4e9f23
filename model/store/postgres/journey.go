package postgres

import (
	"net/http"
	"time"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/model/model"
	U "marketpulse/util"
)

// createOrGetJourney returns the journey for the given id, creating an
// active one on first sight. Journey identity is owned by ingestion.
func createOrGetJourney(db *gorm.DB, journeyID string) (*model.Journey, int) {
	if journeyID == "" {
		return nil, http.StatusBadRequest
	}

	var journey model.Journey
	err := db.Where(model.Journey{ID: journeyID}).
		Attrs(model.Journey{Status: model.JourneyStatusActive}).
		FirstOrCreate(&journey).Error
	if err != nil {
		log.WithFields(log.Fields{"journey_id": journeyID}).WithError(err).
			Error("Failed to create or get journey.")
		return nil, http.StatusInternalServerError
	}
	return &journey, http.StatusFound
}

func (store *Postgres) GetJourney(journeyID string) (*model.Journey, int) {
	logFields := log.Fields{"journey_id": journeyID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var journey model.Journey
	if err := db.Where("id = ?", journeyID).First(&journey).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		log.WithFields(logFields).WithError(err).Error("Failed to get journey.")
		return nil, http.StatusInternalServerError
	}
	return &journey, http.StatusFound
}

// RecordConversion applies the terminal converted transition. Rejected when
// the journey is already terminal: a journey converts exactly once.
func (store *Postgres) RecordConversion(journeyID string, value float64,
	currency, conversionType string, timestamp int64) int {

	logFields := log.Fields{"journey_id": journeyID, "value": value}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if value < 0 || timestamp <= 0 {
		return http.StatusBadRequest
	}
	db := C.GetServices().Db

	journey, errCode := createOrGetJourney(db, journeyID)
	if errCode != http.StatusFound {
		return errCode
	}
	if journey.IsTerminal() {
		logCtx.Warn("Rejected conversion for terminal journey.")
		return http.StatusConflict
	}

	updates := map[string]interface{}{
		"status":               model.JourneyStatusConverted,
		"conversion_value":     value,
		"conversion_currency":  currency,
		"conversion_type":      conversionType,
		"conversion_timestamp": timestamp,
		"end_timestamp":        timestamp,
		"last_event_at":        U.TimeNowUnix(),
	}
	query := db.Model(&model.Journey{}).
		Where("id = ? AND status = ?", journeyID, model.JourneyStatusActive).
		Updates(updates)
	if query.Error != nil {
		logCtx.WithError(query.Error).Error("Failed to record conversion.")
		return http.StatusInternalServerError
	}
	if query.RowsAffected == 0 {
		// Lost the race with another terminal transition.
		return http.StatusConflict
	}
	return http.StatusAccepted
}

// RecordAbandonment applies the terminal abandoned transition.
func (store *Postgres) RecordAbandonment(journeyID string, timestamp int64) int {
	logFields := log.Fields{"journey_id": journeyID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if timestamp <= 0 {
		return http.StatusBadRequest
	}
	db := C.GetServices().Db

	journey, errCode := createOrGetJourney(db, journeyID)
	if errCode != http.StatusFound {
		return errCode
	}
	if journey.IsTerminal() {
		logCtx.Warn("Rejected abandonment for terminal journey.")
		return http.StatusConflict
	}

	query := db.Model(&model.Journey{}).
		Where("id = ? AND status = ?", journeyID, model.JourneyStatusActive).
		Updates(map[string]interface{}{
			"status":        model.JourneyStatusAbandoned,
			"end_timestamp": timestamp,
			"last_event_at": U.TimeNowUnix(),
		})
	if query.Error != nil {
		logCtx.WithError(query.Error).Error("Failed to record abandonment.")
		return http.StatusInternalServerError
	}
	if query.RowsAffected == 0 {
		return http.StatusConflict
	}
	return http.StatusAccepted
}

// GetAssembledJourney loads a journey with its touchpoints and assembles
// them with the given tiebreak.
func (store *Postgres) GetAssembledJourney(journeyID string,
	tiebreak model.TouchpointTiebreak) (*model.AssembledJourney, int) {

	journey, errCode := store.GetJourney(journeyID)
	if errCode != http.StatusFound {
		return nil, errCode
	}

	touchpoints, errCode := store.GetTouchpointsForJourney(journeyID)
	if errCode != http.StatusFound {
		return nil, errCode
	}

	assembled, err := model.AssembleJourney(journey, touchpoints, tiebreak)
	if err != nil {
		log.WithFields(log.Fields{"journey_id": journeyID}).WithError(err).
			Error("Failed to assemble journey.")
		return nil, http.StatusUnprocessableEntity
	}
	return assembled, http.StatusFound
}

// GetJourneysChangedSince returns journeys whose state moved after the
// watermark, oldest change first.
func (store *Postgres) GetJourneysChangedSince(watermark int64, limit int) ([]model.Journey, int) {
	logFields := log.Fields{"watermark": watermark, "limit": limit}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var journeys []model.Journey
	query := db.Where("last_event_at > ?", watermark).Order("last_event_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&journeys).Error; err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to get changed journeys.")
		return nil, http.StatusInternalServerError
	}
	return journeys, http.StatusFound
}

// AbandonStaleJourneys applies the inactivity window: active journeys with
// no events since inactiveBefore transition to abandoned.
func (store *Postgres) AbandonStaleJourneys(inactiveBefore int64) (int64, int) {
	logFields := log.Fields{"inactive_before": inactiveBefore}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	query := db.Model(&model.Journey{}).
		Where("status = ? AND last_event_at < ?", model.JourneyStatusActive, inactiveBefore).
		Updates(map[string]interface{}{
			"status":        model.JourneyStatusAbandoned,
			"end_timestamp": gorm.Expr("last_event_at"),
			"last_event_at": U.TimeNowUnix(),
		})
	if query.Error != nil {
		log.WithFields(logFields).WithError(query.Error).Error("Failed to abandon stale journeys.")
		return 0, http.StatusInternalServerError
	}
	return query.RowsAffected, http.StatusAccepted
}

// GetTerminalJourneysInWindow returns converted journeys whose conversion
// timestamp falls in [from, to] plus abandoned journeys ending in the same
// window, each with touchpoints loaded.
func (store *Postgres) GetTerminalJourneysInWindow(from, to int64) ([]model.Journey, map[string][]model.Touchpoint, int) {
	logFields := log.Fields{"from": from, "to": to}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var journeys []model.Journey
	err := db.Where("(status = ? AND conversion_timestamp BETWEEN ? AND ?)"+
		" OR (status = ? AND end_timestamp BETWEEN ? AND ?)",
		model.JourneyStatusConverted, from, to,
		model.JourneyStatusAbandoned, from, to).
		Find(&journeys).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to get terminal journeys for window.")
		return nil, nil, http.StatusInternalServerError
	}
	if len(journeys) == 0 {
		return journeys, map[string][]model.Touchpoint{}, http.StatusFound
	}

	journeyIDs := make([]string, 0, len(journeys))
	for i := range journeys {
		journeyIDs = append(journeyIDs, journeys[i].ID)
	}

	var touchpoints []model.Touchpoint
	err = db.Where("journey_id IN (?)", journeyIDs).
		Order("journey_id, timestamp ASC").Find(&touchpoints).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to get touchpoints for window.")
		return nil, nil, http.StatusInternalServerError
	}

	touchpointsByJourney := make(map[string][]model.Touchpoint)
	for i := range touchpoints {
		touchpointsByJourney[touchpoints[i].JourneyID] =
			append(touchpointsByJourney[touchpoints[i].JourneyID], touchpoints[i])
	}
	return journeys, touchpointsByJourney, http.StatusFound
}
