package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"marketpulse/model/model"
	"marketpulse/model/store"
)

type CreateCampaignPayload struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Platform    string  `json:"platform"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Status      string  `json:"status"`
}

func CreateCampaignHandler(c *gin.Context) {
	var payload CreateCampaignPayload
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		log.WithError(err).Error("Failed to decode campaign payload.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign payload."})
		return
	}

	campaign := &model.Campaign{
		Name:        payload.Name,
		Type:        payload.Type,
		Platform:    payload.Platform,
		Impressions: payload.Impressions,
		Clicks:      payload.Clicks,
		Spend:       payload.Spend,
		Status:      payload.Status,
	}
	created, errCode := store.GetStore().CreateCampaign(campaign)
	if errCode != http.StatusCreated {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to create campaign."})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func GetCampaignsHandler(c *gin.Context) {
	campaigns, errCode := store.GetStore().GetCampaigns()
	if errCode != http.StatusFound {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to get campaigns."})
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

func UpdateCampaignHandler(c *gin.Context) {
	campaignID := c.Params.ByName("campaign_id")

	var updates map[string]interface{}
	decoder := json.NewDecoder(c.Request.Body)
	if err := decoder.Decode(&updates); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign update payload."})
		return
	}
	// Identity and audit columns are not client writable.
	for _, column := range []string{"id", "created_at", "updated_at"} {
		delete(updates, column)
	}

	campaign, errCode := store.GetStore().UpdateCampaign(campaignID, updates)
	if errCode != http.StatusAccepted {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to update campaign."})
		return
	}
	c.JSON(http.StatusAccepted, campaign)
}

func DeleteCampaignHandler(c *gin.Context) {
	campaignID := c.Params.ByName("campaign_id")
	errCode := store.GetStore().DeleteCampaign(campaignID)
	if errCode != http.StatusAccepted {
		c.AbortWithStatusJSON(errCode, gin.H{"error": "Failed to delete campaign."})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"campaign_id": campaignID})
}
