package postgres

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/model/model"
	U "marketpulse/util"
)

// WriteAttributionResults persists one (journey, model) scoring in a single
// transaction. Rows are upserted on (journey, model, touchpoint) and rows
// from an earlier scoring whose touchpoint is no longer credited are
// removed, so recomputation always converges to the latest credits.
func (store *Postgres) WriteAttributionResults(journey *model.AssembledJourney,
	attributionModel *model.AttributionModel, credits []model.AttributionCredit) (int, int) {

	logFields := log.Fields{"journey_id": journey.Journey.ID, "model_id": attributionModel.ID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if journey.Journey.Status != model.JourneyStatusConverted {
		logCtx.Error("Refused to write results for non-converted journey.")
		return 0, http.StatusBadRequest
	}

	results, err := model.BuildAttributionResults(journey, attributionModel,
		credits, U.TimeNowUnix())
	if err != nil {
		logCtx.WithError(err).Error("Failed to build attribution results.")
		if err == model.ErrNoTouchpoints {
			return 0, http.StatusBadRequest
		}
		return 0, http.StatusInternalServerError
	}

	db := C.GetServices().Db
	tx := db.Begin()

	touchpointIDs := make([]string, 0, len(results))
	for i := range results {
		result := &results[i]
		touchpointIDs = append(touchpointIDs, result.TouchpointID)

		err := tx.Exec(`INSERT INTO attribution_results
			(journey_id, model_id, touchpoint_id, campaign_id, channel, position,
			 is_last_touch, credit_fraction, attributed_value, computed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
			ON CONFLICT (journey_id, model_id, touchpoint_id) DO UPDATE SET
			 campaign_id = excluded.campaign_id, channel = excluded.channel,
			 position = excluded.position, is_last_touch = excluded.is_last_touch,
			 credit_fraction = excluded.credit_fraction,
			 attributed_value = excluded.attributed_value,
			 computed_at = excluded.computed_at, updated_at = NOW()`,
			result.JourneyID, result.ModelID, result.TouchpointID,
			result.CampaignID, result.Channel, result.Position,
			result.IsLastTouch, result.CreditFraction, result.AttributedValue,
			result.ComputedAt).Error
		if err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to upsert attribution result.")
			return 0, http.StatusInternalServerError
		}
	}

	err = tx.Where("journey_id = ? AND model_id = ? AND touchpoint_id NOT IN (?)",
		journey.Journey.ID, attributionModel.ID, touchpointIDs).
		Delete(&model.AttributionResult{}).Error
	if err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to delete stale attribution results.")
		return 0, http.StatusInternalServerError
	}

	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit attribution results.")
		return 0, http.StatusInternalServerError
	}
	return len(results), http.StatusCreated
}

// GetJourneyBreakdown returns the persisted credits of one journey under one
// model, in touch order.
func (store *Postgres) GetJourneyBreakdown(journeyID, modelID string) ([]model.AttributionResult, int) {
	logFields := log.Fields{"journey_id": journeyID, "model_id": modelID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	if journeyID == "" || modelID == "" {
		return nil, http.StatusBadRequest
	}
	db := C.GetServices().Db

	var results []model.AttributionResult
	err := db.Where("journey_id = ? AND model_id = ?", journeyID, modelID).
		Order("position ASC").Find(&results).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to get journey breakdown.")
		return nil, http.StatusInternalServerError
	}
	if len(results) == 0 {
		return nil, http.StatusNotFound
	}
	return results, http.StatusFound
}

// getResultsForConversionWindow returns the results of one model for
// journeys converting inside [from, to].
func getResultsForConversionWindow(modelID string, from, to int64) ([]model.AttributionResult, int) {
	logFields := log.Fields{"model_id": modelID, "from": from, "to": to}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var results []model.AttributionResult
	err := db.Model(&model.AttributionResult{}).
		Joins("JOIN journeys ON journeys.id = attribution_results.journey_id").
		Where("attribution_results.model_id = ? AND journeys.conversion_timestamp BETWEEN ? AND ?",
			modelID, from, to).
		Find(&results).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to get results for conversion window.")
		return nil, http.StatusInternalServerError
	}
	return results, http.StatusFound
}
