package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm/dialects/postgres"
	log "github.com/sirupsen/logrus"

	"marketpulse/metrics"
	"marketpulse/model/model"
	"marketpulse/model/store"
	U "marketpulse/util"
)

type SDKTouchpointPayload struct {
	Channel    string                 `json:"channel"`
	CampaignID *string                `json:"campaign_id"`
	Type       string                 `json:"type"`
	Medium     string                 `json:"medium"`
	Source     string                 `json:"source"`
	Content    string                 `json:"content"`
	Term       string                 `json:"term"`
	Timestamp  int64                  `json:"timestamp"`
	EventValue *float64               `json:"event_value"`
	Properties map[string]interface{} `json:"properties"`
}

type SDKConversionPayload struct {
	Value     float64 `json:"value"`
	Currency  string  `json:"currency"`
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"`
}

type SDKAbandonmentPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// SDKTrackTouchpointHandler appends one touchpoint to a journey. Creates the
// journey on first sight.
// curl -X POST http://localhost:8080/sdk/journeys/j1/touchpoints -d '{"channel": "paid_search", "timestamp": 1700000000}'
func SDKTrackTouchpointHandler(c *gin.Context) {
	metrics.Increment(metrics.IncrSDKTouchpointRequestCount)

	journeyID := c.Params.ByName("journey_id")
	if journeyID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid journey id."})
		return
	}

	var payload SDKTouchpointPayload
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		log.WithError(err).Error("Failed to decode touchpoint payload.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid touchpoint payload."})
		return
	}
	if payload.Timestamp <= 0 {
		payload.Timestamp = U.TimeNowUnix()
	}

	touchpoint := &model.Touchpoint{
		JourneyID:  journeyID,
		Channel:    payload.Channel,
		CampaignID: payload.CampaignID,
		Type:       payload.Type,
		Medium:     payload.Medium,
		Source:     payload.Source,
		Content:    payload.Content,
		Term:       payload.Term,
		Timestamp:  payload.Timestamp,
		EventValue: payload.EventValue,
	}
	if len(payload.Properties) > 0 {
		propertiesJson, err := json.Marshal(payload.Properties)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid touchpoint properties."})
			return
		}
		touchpoint.Properties = &postgres.Jsonb{RawMessage: propertiesJson}
	}

	created, errCode := store.GetStore().CreateTouchpoint(touchpoint)
	if errCode != http.StatusCreated {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to track touchpoint."})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// SDKRecordConversionHandler records the terminal conversion of a journey.
func SDKRecordConversionHandler(c *gin.Context) {
	metrics.Increment(metrics.IncrSDKConversionRequestCount)

	journeyID := c.Params.ByName("journey_id")
	if journeyID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid journey id."})
		return
	}

	var payload SDKConversionPayload
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		log.WithError(err).Error("Failed to decode conversion payload.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid conversion payload."})
		return
	}
	if payload.Value < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid conversion value."})
		return
	}
	if payload.Timestamp <= 0 {
		payload.Timestamp = U.TimeNowUnix()
	}

	errCode := store.GetStore().RecordConversion(journeyID, payload.Value,
		payload.Currency, payload.Type, payload.Timestamp)
	if errCode != http.StatusAccepted {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to record conversion."})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"journey_id": journeyID, "status": model.JourneyStatusConverted})
}

// SDKRecordAbandonmentHandler records the terminal abandonment of a journey.
func SDKRecordAbandonmentHandler(c *gin.Context) {
	metrics.Increment(metrics.IncrSDKAbandonmentRequestCount)

	journeyID := c.Params.ByName("journey_id")
	if journeyID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid journey id."})
		return
	}

	var payload SDKAbandonmentPayload
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		log.WithError(err).Error("Failed to decode abandonment payload.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid abandonment payload."})
		return
	}
	if payload.Timestamp <= 0 {
		payload.Timestamp = U.TimeNowUnix()
	}

	errCode := store.GetStore().RecordAbandonment(journeyID, payload.Timestamp)
	if errCode != http.StatusAccepted {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to record abandonment."})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"journey_id": journeyID, "status": model.JourneyStatusAbandoned})
}
