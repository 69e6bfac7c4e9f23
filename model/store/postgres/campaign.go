package postgres

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/model/model"
	U "marketpulse/util"
)

func (store *Postgres) CreateCampaign(campaign *model.Campaign) (*model.Campaign, int) {
	logFields := log.Fields{"name": campaign.Name}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if campaign.Name == "" {
		return nil, http.StatusBadRequest
	}
	if campaign.Status == "" {
		campaign.Status = model.CampaignStatusDraft
	}
	if !model.IsValidCampaignStatus(campaign.Status) {
		logCtx.WithField("status", campaign.Status).Error("Invalid campaign status.")
		return nil, http.StatusBadRequest
	}
	if campaign.Spend < 0 {
		return nil, http.StatusBadRequest
	}
	db := C.GetServices().Db

	if campaign.ID == "" {
		campaign.ID = U.GetUUID()
	}
	if err := db.Create(campaign).Error; err != nil {
		logCtx.WithError(err).Error("Failed to create campaign.")
		return nil, http.StatusInternalServerError
	}
	return campaign, http.StatusCreated
}

func (store *Postgres) GetCampaigns() ([]model.Campaign, int) {
	logFields := log.Fields{}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var campaigns []model.Campaign
	if err := db.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		log.WithError(err).Error("Failed to get campaigns.")
		return nil, http.StatusInternalServerError
	}
	return campaigns, http.StatusFound
}

func (store *Postgres) UpdateCampaign(campaignID string,
	updates map[string]interface{}) (*model.Campaign, int) {

	logFields := log.Fields{"campaign_id": campaignID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	if campaignID == "" || len(updates) == 0 {
		return nil, http.StatusBadRequest
	}
	if status, exists := updates["status"]; exists {
		statusAsString, ok := status.(string)
		if !ok || !model.IsValidCampaignStatus(statusAsString) {
			return nil, http.StatusBadRequest
		}
	}
	db := C.GetServices().Db

	query := db.Model(&model.Campaign{}).Where("id = ?", campaignID).Updates(updates)
	if query.Error != nil {
		logCtx.WithError(query.Error).Error("Failed to update campaign.")
		return nil, http.StatusInternalServerError
	}
	if query.RowsAffected == 0 {
		return nil, http.StatusNotFound
	}

	var campaign model.Campaign
	if err := db.Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		logCtx.WithError(err).Error("Failed to get campaign after update.")
		return nil, http.StatusInternalServerError
	}
	return &campaign, http.StatusAccepted
}

func (store *Postgres) DeleteCampaign(campaignID string) int {
	logFields := log.Fields{"campaign_id": campaignID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	if campaignID == "" {
		return http.StatusBadRequest
	}
	db := C.GetServices().Db

	query := db.Where("id = ?", campaignID).Delete(&model.Campaign{})
	if query.Error != nil {
		log.WithFields(logFields).WithError(query.Error).Error("Failed to delete campaign.")
		return http.StatusInternalServerError
	}
	if query.RowsAffected == 0 {
		return http.StatusNotFound
	}
	return http.StatusAccepted
}

// GetCampaignSpendMap returns spend by campaign id for the insight cost
// columns.
func (store *Postgres) GetCampaignSpendMap() (map[string]float64, int) {
	logFields := log.Fields{}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	rows, err := db.Model(&model.Campaign{}).Select("id, spend").Rows()
	if err != nil {
		log.WithError(err).Error("Failed to get campaign spend map.")
		return nil, http.StatusInternalServerError
	}
	defer rows.Close()

	spendByCampaign := make(map[string]float64)
	for rows.Next() {
		var id string
		var spend float64
		if err := rows.Scan(&id, &spend); err != nil {
			log.WithError(err).Error("Failed to scan campaign spend row.")
			return nil, http.StatusInternalServerError
		}
		spendByCampaign[id] = spend
	}
	return spendByCampaign, http.StatusFound
}
