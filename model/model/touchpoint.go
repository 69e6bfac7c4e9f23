package model

import (
	"time"

	"github.com/jinzhu/gorm/dialects/postgres"

	U "marketpulse/util"
)

// Marketing channels a touchpoint can belong to.
const (
	ChannelPaidSearch = "paid_search"
	ChannelPaidSocial = "paid_social"
	ChannelEmail      = "email"
	ChannelOrganic    = "organic"
	ChannelReferral   = "referral"
	ChannelDirect     = "direct"
	ChannelOther      = "other"
)

// Touchpoint exposure types.
const (
	TouchpointTypeImpression = "impression"
	TouchpointTypeClick      = "click"
	TouchpointTypeView       = "view"
	TouchpointTypeEngagement = "engagement"
)

var allowedChannels = []string{ChannelPaidSearch, ChannelPaidSocial, ChannelEmail,
	ChannelOrganic, ChannelReferral, ChannelDirect, ChannelOther}

var allowedTouchpointTypes = []string{TouchpointTypeImpression, TouchpointTypeClick,
	TouchpointTypeView, TouchpointTypeEngagement}

// Touchpoint is one marketing exposure within a journey. Immutable once
// recorded; owned exclusively by its journey.
type Touchpoint struct {
	ID        string `gorm:"primary_key:true" json:"id"`
	JourneyID string `gorm:"not null;index:idx_touchpoint_journey" json:"journey_id"`
	// IngestSeq is the append order assigned by storage. It is the stable
	// input for ordering tiebreaks; the engine never invents an ordering.
	IngestSeq  uint64  `gorm:"auto_increment" json:"ingest_seq"`
	Channel    string  `gorm:"not null" json:"channel"`
	CampaignID *string `json:"campaign_id,omitempty"`
	Type       string  `gorm:"not null" json:"type"`
	Medium     string  `json:"medium,omitempty"`
	Source     string  `json:"source,omitempty"`
	Content    string  `json:"content,omitempty"`
	Term       string  `json:"term,omitempty"`
	Timestamp  int64   `gorm:"not null" json:"timestamp"`
	// Position is the 1-based ordinal within the assembled journey. Assigned
	// at assembly time, not persisted.
	Position   int             `gorm:"-" json:"position,omitempty"`
	EventValue *float64        `json:"event_value,omitempty"`
	Properties *postgres.Jsonb `json:"properties,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TouchpointTiebreak orders two touchpoints that share a timestamp.
// Returns <0 when a sorts before b, >0 when after, 0 when the tiebreak
// cannot distinguish them (which makes the ordering ambiguous).
type TouchpointTiebreak func(a, b *Touchpoint) int

// TiebreakByIngestSeq breaks timestamp ties with the storage append order.
func TiebreakByIngestSeq(a, b *Touchpoint) int {
	if a.IngestSeq < b.IngestSeq {
		return -1
	}
	if a.IngestSeq > b.IngestSeq {
		return 1
	}
	return 0
}

func IsValidChannel(channel string) bool {
	return U.ContainsStringInArray(allowedChannels, channel)
}

func IsValidTouchpointType(touchpointType string) bool {
	return U.ContainsStringInArray(allowedTouchpointTypes, touchpointType)
}
