package model

import (
	"time"

	U "marketpulse/util"
)

// Campaign statuses.
const (
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
	CampaignStatusDraft     = "draft"
)

var allowedCampaignStatuses = []string{CampaignStatusActive, CampaignStatusPaused,
	CampaignStatusCompleted, CampaignStatusDraft}

// Campaign is the registry entry touchpoints reference by CampaignID. Spend
// recorded here is what makes cost-per-conversion computable on insights.
type Campaign struct {
	ID          string    `gorm:"primary_key:true" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Type        string    `gorm:"not null" json:"type"`
	Platform    string    `gorm:"not null" json:"platform"`
	Impressions int64     `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64     `gorm:"not null;default:0" json:"clicks"`
	Spend       float64   `gorm:"not null;default:0" json:"spend"`
	Status      string    `gorm:"not null;default:'active'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func IsValidCampaignStatus(status string) bool {
	return U.ContainsStringInArray(allowedCampaignStatuses, status)
}
