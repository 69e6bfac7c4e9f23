package handler

import (
	"github.com/gin-gonic/gin"

	mid "marketpulse/middleware"
)

// InitRoutes registers all routes of the attribution api.
func InitRoutes(r *gin.Engine) {
	r.Use(mid.SetScopeRequestId())
	r.Use(mid.CustomCors())
	r.Use(mid.Logger())

	r.GET("/health", HealthHandler)

	// SDK ingest surface. Open cors; journeys are created on first touch.
	r.POST("/sdk/journeys/:journey_id/touchpoints", SDKTrackTouchpointHandler)
	r.POST("/sdk/journeys/:journey_id/conversion", SDKRecordConversionHandler)
	r.POST("/sdk/journeys/:journey_id/abandonment", SDKRecordAbandonmentHandler)

	// Attribution read and admin surface.
	r.GET("/attribution/models", GetAttributionModelsHandler)
	r.POST("/attribution/models", CreateAttributionModelHandler)
	r.PUT("/attribution/models/:model_id/activate", SetAttributionModelActiveHandler(true))
	r.PUT("/attribution/models/:model_id/deactivate", SetAttributionModelActiveHandler(false))
	r.PUT("/attribution/models/:model_id/default", SetDefaultAttributionModelHandler)
	r.GET("/attribution/insights", GetInsightsHandler)
	r.GET("/attribution/journeys/:journey_id/breakdown", GetJourneyBreakdownHandler)

	// Campaign registry.
	r.GET("/campaigns", GetCampaignsHandler)
	r.POST("/campaigns", CreateCampaignHandler)
	r.PATCH("/campaigns/:campaign_id", UpdateCampaignHandler)
	r.DELETE("/campaigns/:campaign_id", DeleteCampaignHandler)
}
