package postgres

import (
	"net/http"
	"time"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/model/model"
	U "marketpulse/util"
)

// GetJobWatermark returns the last fully processed change timestamp of a
// job. A job that never ran starts from zero.
func (store *Postgres) GetJobWatermark(jobName string) (int64, int) {
	logFields := log.Fields{"job_name": jobName}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	if jobName == "" {
		return 0, http.StatusBadRequest
	}
	db := C.GetServices().Db

	var watermark model.JobWatermark
	if err := db.Where("job_name = ?", jobName).First(&watermark).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, http.StatusNotFound
		}
		log.WithFields(logFields).WithError(err).Error("Failed to get job watermark.")
		return 0, http.StatusInternalServerError
	}
	return watermark.Timestamp, http.StatusFound
}

func (store *Postgres) SetJobWatermark(jobName string, timestamp int64) int {
	logFields := log.Fields{"job_name": jobName, "timestamp": timestamp}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	if jobName == "" || timestamp < 0 {
		return http.StatusBadRequest
	}
	db := C.GetServices().Db

	err := db.Exec(`INSERT INTO job_watermarks (job_name, timestamp, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (job_name) DO UPDATE SET
		 timestamp = excluded.timestamp, updated_at = excluded.updated_at`,
		jobName, timestamp, U.TimeNowZ()).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to set job watermark.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}
