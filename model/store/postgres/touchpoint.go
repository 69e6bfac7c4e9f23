package postgres

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/model/model"
	U "marketpulse/util"
)

// CreateTouchpoint appends one touchpoint to its journey. Touchpoints are
// append-only facts: journeys already terminal reject further appends.
func (store *Postgres) CreateTouchpoint(touchpoint *model.Touchpoint) (*model.Touchpoint, int) {
	logFields := log.Fields{"journey_id": touchpoint.JourneyID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if touchpoint.JourneyID == "" || touchpoint.Timestamp <= 0 {
		return nil, http.StatusBadRequest
	}
	if !model.IsValidChannel(touchpoint.Channel) {
		logCtx.WithField("channel", touchpoint.Channel).Error("Invalid touchpoint channel.")
		return nil, http.StatusBadRequest
	}
	if touchpoint.Type == "" {
		touchpoint.Type = model.TouchpointTypeClick
	}
	if !model.IsValidTouchpointType(touchpoint.Type) {
		logCtx.WithField("type", touchpoint.Type).Error("Invalid touchpoint type.")
		return nil, http.StatusBadRequest
	}
	db := C.GetServices().Db

	journey, errCode := createOrGetJourney(db, touchpoint.JourneyID)
	if errCode != http.StatusFound {
		return nil, errCode
	}
	if journey.IsTerminal() {
		logCtx.Warn("Rejected touchpoint append on terminal journey.")
		return nil, http.StatusConflict
	}

	if touchpoint.ID == "" {
		touchpoint.ID = U.GetUUID()
	}

	tx := db.Begin()
	if err := tx.Create(touchpoint).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to create touchpoint.")
		return nil, http.StatusInternalServerError
	}

	journeyUpdates := map[string]interface{}{"last_event_at": U.TimeNowUnix()}
	if journey.StartTimestamp == 0 || touchpoint.Timestamp < journey.StartTimestamp {
		journeyUpdates["start_timestamp"] = touchpoint.Timestamp
	}
	if touchpoint.Timestamp > journey.EndTimestamp {
		journeyUpdates["end_timestamp"] = touchpoint.Timestamp
	}
	err := tx.Model(&model.Journey{}).Where("id = ?", journey.ID).
		Updates(journeyUpdates).Error
	if err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to update journey on touchpoint append.")
		return nil, http.StatusInternalServerError
	}

	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit touchpoint append.")
		return nil, http.StatusInternalServerError
	}
	return touchpoint, http.StatusCreated
}

func (store *Postgres) GetTouchpointsForJourney(journeyID string) ([]model.Touchpoint, int) {
	logFields := log.Fields{"journey_id": journeyID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var touchpoints []model.Touchpoint
	err := db.Where("journey_id = ?", journeyID).
		Order("timestamp ASC, ingest_seq ASC").Find(&touchpoints).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to get touchpoints for journey.")
		return nil, http.StatusInternalServerError
	}
	return touchpoints, http.StatusFound
}
