package model

import "time"

// JobWatermark is the timestamp boundary up to which a batch job has
// durably completed. Advanced only after a full batch succeeds, giving the
// recomputation job at-least-once semantics.
type JobWatermark struct {
	JobName   string    `gorm:"primary_key:true" json:"job_name"`
	Timestamp int64     `gorm:"not null;default:0" json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at"`
}
