package model

import (
	"encoding/json"
	"time"

	"github.com/jinzhu/gorm/dialects/postgres"

	U "marketpulse/util"
)

// Attribution model kinds. Closed set; ApplyAttributionModel dispatches
// exhaustively over these.
const (
	AttributionModelFirstTouch    = "first_touch"
	AttributionModelLastTouch     = "last_touch"
	AttributionModelLinear        = "linear"
	AttributionModelTimeDecay     = "time_decay"
	AttributionModelPositionBased = "position_based"
	AttributionModelDataDriven    = "data_driven"
)

var allowedModelKinds = []string{AttributionModelFirstTouch, AttributionModelLastTouch,
	AttributionModelLinear, AttributionModelTimeDecay, AttributionModelPositionBased,
	AttributionModelDataDriven}

const (
	// DefaultHalfLifeDays is the time-decay half-life used when the model
	// params leave it unset.
	DefaultHalfLifeDays = 7.0

	// CreditEpsilon is the tolerance on the credit conservation invariant:
	// per journey and model, credit fractions must sum to 1.0 within it.
	CreditEpsilon = 1e-9

	SecsInADay = int64(86400)
)

// AttributionModelParams are the per-kind tuning knobs. Only the fields
// relevant to the kind are read. Zero values mean "unset" and select the
// kind's documented default, the same way for every kind.
type AttributionModelParams struct {
	// time_decay: half-life in days, > 0. Zero or omitted selects
	// DefaultHalfLifeDays.
	HalfLifeDays float64 `json:"half_life_days,omitempty"`
	// position_based: fixed shares for first/last touch and the total share
	// split across interior touchpoints. When set, each share is in [0,1]
	// and the three sum to 1.0. All three zero or omitted selects the
	// 40/20/40 U-shape.
	FirstWeight  float64 `json:"first_weight,omitempty"`
	MiddleWeight float64 `json:"middle_weight,omitempty"`
	LastWeight   float64 `json:"last_weight,omitempty"`
}

// AttributionModel is a named, versioned attribution configuration.
// Immutable per version: a parameter change creates a new version row so
// past results stay reproducible.
type AttributionModel struct {
	ID      string          `gorm:"primary_key:true" json:"id"`
	Name    string          `gorm:"not null;unique_index:uix_attribution_model_name_version" json:"name"`
	Version int             `gorm:"not null;default:1;unique_index:uix_attribution_model_name_version" json:"version"`
	Kind    string          `gorm:"not null" json:"kind"`
	Params  *postgres.Jsonb `json:"params,omitempty"`
	Active  bool            `gorm:"not null;default:true" json:"active"`
	// Exactly one model may be flagged default at a time.
	Default   bool      `gorm:"not null;default:false" json:"default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func IsValidAttributionModelKind(kind string) bool {
	return U.ContainsStringInArray(allowedModelKinds, kind)
}

// GetParams decodes the params jsonb. Missing params yield zero values, for
// which the calculators apply kind defaults.
func (am *AttributionModel) GetParams() (*AttributionModelParams, error) {
	params := &AttributionModelParams{}
	if am.Params == nil || len(am.Params.RawMessage) == 0 {
		return params, nil
	}

	if err := json.Unmarshal(am.Params.RawMessage, params); err != nil {
		return nil, err
	}
	return params, nil
}

// ValidateAttributionModelParams rejects malformed params at registration
// time. Zero values are accepted as "unset" and are resolved to the kind's
// documented default by the calculators; anything set is validated strictly,
// never coerced.
func ValidateAttributionModelParams(kind string, params *AttributionModelParams) error {
	switch kind {
	case AttributionModelTimeDecay:
		if params.HalfLifeDays < 0 {
			return ErrInvalidModelParams
		}
	case AttributionModelPositionBased:
		weights := []float64{params.FirstWeight, params.MiddleWeight, params.LastWeight}
		sum := 0.0
		for _, w := range weights {
			if w < 0 || w > 1 {
				return ErrInvalidModelParams
			}
			sum += w
		}
		if sum == 0 {
			// All three unset; applyPositionBased uses the 40/20/40 default.
			return nil
		}
		if !U.Float64Equal(sum, 1.0, CreditEpsilon) {
			return ErrInvalidModelParams
		}
	}
	return nil
}
