package postgres

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	cacheRedis "marketpulse/cache/redis"
	C "marketpulse/config"
	"marketpulse/metrics"
	"marketpulse/model/model"
	U "marketpulse/util"
)

const (
	insightCacheKeyPrefix    = "attribution_insights:cell"
	insightCacheExpirySecs   = 30 * 60
	insightCacheSuffixFormat = "model:%s:gran:%s:period:%s"
)

// Period starts are midnight-aligned for every granularity, so the date
// alone identifies the window within a granularity.
func insightCacheKey(modelID, granularity string, periodStart int64) (*cacheRedis.Key, error) {
	return cacheRedis.NewKey(insightCacheKeyPrefix,
		fmt.Sprintf(insightCacheSuffixFormat, modelID, granularity,
			U.GetDateOnlyFromTimestampZ(periodStart)))
}

// RebuildInsightsForPeriod re-derives every insight row of one (model,
// granularity, period) window from results and terminal journeys. Delete
// and re-insert inside one transaction, so readers never see a half-built
// period and repeated rebuilds of the same window converge.
func (store *Postgres) RebuildInsightsForPeriod(attributionModel *model.AttributionModel,
	granularity string, periodStart int64, tiebreak model.TouchpointTiebreak) (int, int) {

	logFields := log.Fields{"model_id": attributionModel.ID,
		"granularity": granularity, "period_start": periodStart}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if !U.IsValidGranularity(granularity) {
		return 0, http.StatusBadRequest
	}
	periodEnd, err := U.GetPeriodEndTimestampIn(periodStart, granularity, U.TimeZoneStringUTC)
	if err != nil {
		return 0, http.StatusBadRequest
	}

	results, errCode := getResultsForConversionWindow(attributionModel.ID, periodStart, periodEnd)
	if errCode != http.StatusFound {
		return 0, errCode
	}

	journeys, touchpointsByJourney, errCode := store.GetTerminalJourneysInWindow(periodStart, periodEnd)
	if errCode != http.StatusFound {
		return 0, errCode
	}

	assembled := make([]model.AssembledJourney, 0, len(journeys))
	for i := range journeys {
		journeyAssembled, err := model.AssembleJourney(&journeys[i],
			touchpointsByJourney[journeys[i].ID], tiebreak)
		if err != nil {
			if err == model.ErrNoTouchpoints {
				continue
			}
			logCtx.WithField("journey_id", journeys[i].ID).WithError(err).
				Error("Failed to assemble journey for insights.")
			return 0, http.StatusUnprocessableEntity
		}
		assembled = append(assembled, *journeyAssembled)
	}

	spendByCampaign, errCode := store.GetCampaignSpendMap()
	if errCode != http.StatusFound {
		return 0, errCode
	}

	insights := model.BuildAttributionInsights(results, assembled, spendByCampaign,
		attributionModel.ID, granularity, periodStart, U.TimeNowUnix())

	db := C.GetServices().Db
	tx := db.Begin()
	err = tx.Where("model_id = ? AND granularity = ? AND period_start = ?",
		attributionModel.ID, granularity, periodStart).
		Delete(&model.AttributionInsight{}).Error
	if err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to delete insights for rebuild.")
		return 0, http.StatusInternalServerError
	}
	for i := range insights {
		if err := tx.Create(&insights[i]).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to insert insight row.")
			return 0, http.StatusInternalServerError
		}
	}
	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit insight rebuild.")
		return 0, http.StatusInternalServerError
	}

	if key, err := insightCacheKey(attributionModel.ID, granularity, periodStart); err == nil {
		if err := cacheRedis.Del(key); err != nil {
			logCtx.WithError(err).Warn("Failed to invalidate insight cache.")
		}
	}
	metrics.Increment(metrics.IncrAttributionInsightsRebuilt)
	return len(insights), http.StatusCreated
}

// GetInsights serves the insight rows of one (model, granularity, period)
// window, optionally filtered by channel and campaign. A period that was
// never computed is a 404: absence of insights is distinct from zeros.
func (store *Postgres) GetInsights(modelID, granularity string, periodStart int64,
	channel, campaignID string) ([]model.AttributionInsight, int) {

	logFields := log.Fields{"model_id": modelID, "granularity": granularity,
		"period_start": periodStart}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if modelID == "" || !U.IsValidGranularity(granularity) || periodStart <= 0 {
		return nil, http.StatusBadRequest
	}

	insights, found := getInsightsFromCache(modelID, granularity, periodStart)
	if !found {
		db := C.GetServices().Db
		err := db.Where("model_id = ? AND granularity = ? AND period_start = ?",
			modelID, granularity, periodStart).
			Order("channel ASC, campaign_id ASC").Find(&insights).Error
		if err != nil {
			logCtx.WithError(err).Error("Failed to get insights.")
			return nil, http.StatusInternalServerError
		}
		if len(insights) == 0 {
			return nil, http.StatusNotFound
		}
		setInsightsCache(modelID, granularity, periodStart, insights)
	}

	if channel == "" && campaignID == "" {
		return insights, http.StatusFound
	}
	filtered := make([]model.AttributionInsight, 0, len(insights))
	for i := range insights {
		if channel != "" && insights[i].Channel != channel {
			continue
		}
		if campaignID != "" && insights[i].CampaignID != campaignID {
			continue
		}
		filtered = append(filtered, insights[i])
	}
	if len(filtered) == 0 {
		return nil, http.StatusNotFound
	}
	return filtered, http.StatusFound
}

func getInsightsFromCache(modelID, granularity string, periodStart int64) ([]model.AttributionInsight, bool) {
	key, err := insightCacheKey(modelID, granularity, periodStart)
	if err != nil {
		return nil, false
	}
	cached, err := cacheRedis.Get(key)
	if err != nil {
		if err != cacheRedis.ErrorCacheMiss {
			log.WithError(err).Warn("Failed to read insight cache.")
		}
		return nil, false
	}

	var insights []model.AttributionInsight
	if err := json.Unmarshal([]byte(cached), &insights); err != nil {
		log.WithError(err).Warn("Failed to decode cached insights.")
		return nil, false
	}
	return insights, true
}

func setInsightsCache(modelID, granularity string, periodStart int64,
	insights []model.AttributionInsight) {

	key, err := insightCacheKey(modelID, granularity, periodStart)
	if err != nil {
		return
	}
	encoded, err := json.Marshal(insights)
	if err != nil {
		return
	}
	if err := cacheRedis.Set(key, string(encoded), insightCacheExpirySecs); err != nil {
		log.WithError(err).Warn("Failed to write insight cache.")
	}
}
