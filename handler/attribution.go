package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm/dialects/postgres"
	log "github.com/sirupsen/logrus"

	"marketpulse/model/model"
	"marketpulse/model/store"
	U "marketpulse/util"
)

type CreateAttributionModelPayload struct {
	Name    string                        `json:"name"`
	Kind    string                        `json:"kind"`
	Params  *model.AttributionModelParams `json:"params"`
	Default bool                          `json:"default"`
}

// CreateAttributionModelHandler registers a model configuration. Reusing a
// name versions it instead of mutating the existing row.
func CreateAttributionModelHandler(c *gin.Context) {
	var payload CreateAttributionModelPayload
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		log.WithError(err).Error("Failed to decode attribution model payload.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid model payload."})
		return
	}

	attributionModel := &model.AttributionModel{
		Name:    payload.Name,
		Kind:    payload.Kind,
		Default: payload.Default,
	}
	if payload.Params != nil {
		paramsJson, err := json.Marshal(payload.Params)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid model params."})
			return
		}
		attributionModel.Params = &postgres.Jsonb{RawMessage: paramsJson}
	}

	created, errCode := store.GetStore().CreateAttributionModel(attributionModel)
	if errCode != http.StatusCreated {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to create attribution model."})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func GetAttributionModelsHandler(c *gin.Context) {
	attributionModels, errCode := store.GetStore().GetAttributionModels()
	if errCode != http.StatusFound {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to get attribution models."})
		return
	}
	c.JSON(http.StatusOK, attributionModels)
}

func SetAttributionModelActiveHandler(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		modelID := c.Params.ByName("model_id")
		errCode := store.GetStore().SetAttributionModelActive(modelID, active)
		if errCode != http.StatusAccepted {
			c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to update attribution model."})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"model_id": modelID, "active": active})
	}
}

func SetDefaultAttributionModelHandler(c *gin.Context) {
	modelID := c.Params.ByName("model_id")
	errCode := store.GetStore().SetDefaultAttributionModel(modelID)
	if errCode != http.StatusAccepted {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to set default attribution model."})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"model_id": modelID, "default": true})
}

// GetInsightsHandler serves aggregated attribution for one (model,
// granularity, period), optionally scoped to a channel or campaign. An
// uncomputed period is a 404; zeros would misreport it as measured.
// curl 'http://localhost:8080/attribution/insights?model_id=m1&granularity=days&period_start=1700000000'
func GetInsightsHandler(c *gin.Context) {
	modelID := c.Query("model_id")
	granularity := c.Query("granularity")
	periodStart, err := strconv.ParseInt(c.Query("period_start"), 10, 64)
	if err != nil || modelID == "" || !U.IsValidGranularity(granularity) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid insights query."})
		return
	}

	insights, errCode := store.GetStore().GetInsights(modelID, granularity,
		periodStart, c.Query("channel"), c.Query("campaign_id"))
	if errCode != http.StatusFound {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to get insights."})
		return
	}
	c.JSON(http.StatusOK, insights)
}

// GetJourneyBreakdownHandler serves the per-touchpoint credit split of one
// journey under one model.
func GetJourneyBreakdownHandler(c *gin.Context) {
	journeyID := c.Params.ByName("journey_id")
	modelID := c.Query("model_id")
	if journeyID == "" || modelID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid breakdown query."})
		return
	}

	results, errCode := store.GetStore().GetJourneyBreakdown(journeyID, modelID)
	if errCode != http.StatusFound {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to get journey breakdown."})
		return
	}
	c.JSON(http.StatusOK, results)
}
