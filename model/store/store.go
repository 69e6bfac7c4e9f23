package store

import (
	"marketpulse/model/model"
	storePostgres "marketpulse/model/store/postgres"
)

// Model is the storage interface of the attribution engine. Methods return
// a net/http status code alongside the value; 2xx codes indicate success.
type Model interface {
	// Journeys and touchpoints. The only writes into journey state are the
	// three append-only facts from ingestion.
	CreateTouchpoint(touchpoint *model.Touchpoint) (*model.Touchpoint, int)
	GetTouchpointsForJourney(journeyID string) ([]model.Touchpoint, int)
	GetJourney(journeyID string) (*model.Journey, int)
	RecordConversion(journeyID string, value float64, currency, conversionType string, timestamp int64) int
	RecordAbandonment(journeyID string, timestamp int64) int
	GetAssembledJourney(journeyID string, tiebreak model.TouchpointTiebreak) (*model.AssembledJourney, int)
	GetJourneysChangedSince(watermark int64, limit int) ([]model.Journey, int)
	AbandonStaleJourneys(inactiveBefore int64) (int64, int)

	// Attribution model registry.
	CreateAttributionModel(attributionModel *model.AttributionModel) (*model.AttributionModel, int)
	GetAttributionModels() ([]model.AttributionModel, int)
	GetActiveAttributionModels() ([]model.AttributionModel, int)
	GetAttributionModel(modelID string) (*model.AttributionModel, int)
	SetAttributionModelActive(modelID string, active bool) int
	SetDefaultAttributionModel(modelID string) int

	// Attribution results.
	WriteAttributionResults(journey *model.AssembledJourney, attributionModel *model.AttributionModel,
		credits []model.AttributionCredit) (int, int)
	GetJourneyBreakdown(journeyID, modelID string) ([]model.AttributionResult, int)

	// Attribution insights.
	RebuildInsightsForPeriod(attributionModel *model.AttributionModel, granularity string,
		periodStart int64, tiebreak model.TouchpointTiebreak) (int, int)
	GetInsights(modelID, granularity string, periodStart int64, channel, campaignID string) ([]model.AttributionInsight, int)

	// Campaign registry.
	CreateCampaign(campaign *model.Campaign) (*model.Campaign, int)
	GetCampaigns() ([]model.Campaign, int)
	UpdateCampaign(campaignID string, updates map[string]interface{}) (*model.Campaign, int)
	DeleteCampaign(campaignID string) int
	GetCampaignSpendMap() (map[string]float64, int)

	// Job watermarks.
	GetJobWatermark(jobName string) (int64, int)
	SetJobWatermark(jobName string, timestamp int64) int
}

// GetStore - Should decide on which model implementation to use by
// configuration and return the store.
func GetStore() Model {
	var store Model
	store = &storePostgres.Postgres{}
	return store
}
