package postgres

import (
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	C "marketpulse/config"
	"marketpulse/model/model"
	U "marketpulse/util"
)

// Model versions are immutable once created, so an entry read from this
// cache never goes stale. Activation state is not cached.
var attributionModelCache, _ = lru.New(100)

// CreateAttributionModel registers a model configuration. A name reuse is a
// parameter change: the new row gets the next version and earlier versions
// of the name are deactivated.
func (store *Postgres) CreateAttributionModel(
	attributionModel *model.AttributionModel) (*model.AttributionModel, int) {

	logFields := log.Fields{"name": attributionModel.Name, "kind": attributionModel.Kind}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)

	attributionModel.Name = strings.TrimSpace(attributionModel.Name)
	if attributionModel.Name == "" {
		return nil, http.StatusBadRequest
	}
	if !model.IsValidAttributionModelKind(attributionModel.Kind) {
		logCtx.Error("Invalid attribution model kind.")
		return nil, http.StatusBadRequest
	}
	params, err := attributionModel.GetParams()
	if err != nil {
		logCtx.WithError(err).Error("Failed to decode attribution model params.")
		return nil, http.StatusBadRequest
	}
	if err := model.ValidateAttributionModelParams(attributionModel.Kind, params); err != nil {
		logCtx.WithError(err).Error("Invalid attribution model params.")
		return nil, http.StatusBadRequest
	}
	db := C.GetServices().Db

	attributionModel.ID = U.GetUUID()
	attributionModel.Active = true

	tx := db.Begin()

	var latestVersion struct{ Version int }
	err = tx.Model(&model.AttributionModel{}).Select("COALESCE(MAX(version), 0) AS version").
		Where("name = ?", attributionModel.Name).Scan(&latestVersion).Error
	if err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to get latest attribution model version.")
		return nil, http.StatusInternalServerError
	}
	attributionModel.Version = latestVersion.Version + 1

	if attributionModel.Version > 1 {
		err = tx.Model(&model.AttributionModel{}).
			Where("name = ? AND active = ?", attributionModel.Name, true).
			Update("active", false).Error
		if err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to deactivate earlier model versions.")
			return nil, http.StatusInternalServerError
		}
	}

	if attributionModel.Default {
		// Exactly one default. Creating a new default demotes the old one.
		err = tx.Model(&model.AttributionModel{}).Where(`"default" = ?`, true).
			Update("default", false).Error
		if err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to demote previous default model.")
			return nil, http.StatusInternalServerError
		}
	}

	if err := tx.Create(attributionModel).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to create attribution model.")
		return nil, http.StatusInternalServerError
	}
	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit attribution model create.")
		return nil, http.StatusInternalServerError
	}
	return attributionModel, http.StatusCreated
}

func (store *Postgres) GetAttributionModels() ([]model.AttributionModel, int) {
	logFields := log.Fields{}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var attributionModels []model.AttributionModel
	err := db.Order("name ASC, version DESC").Find(&attributionModels).Error
	if err != nil {
		log.WithError(err).Error("Failed to get attribution models.")
		return nil, http.StatusInternalServerError
	}
	return attributionModels, http.StatusFound
}

func (store *Postgres) GetActiveAttributionModels() ([]model.AttributionModel, int) {
	logFields := log.Fields{}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var attributionModels []model.AttributionModel
	err := db.Where("active = ?", true).Order("name ASC").Find(&attributionModels).Error
	if err != nil {
		log.WithError(err).Error("Failed to get active attribution models.")
		return nil, http.StatusInternalServerError
	}
	return attributionModels, http.StatusFound
}

func (store *Postgres) GetAttributionModel(modelID string) (*model.AttributionModel, int) {
	logFields := log.Fields{"model_id": modelID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)

	if modelID == "" {
		return nil, http.StatusBadRequest
	}
	if cached, exists := attributionModelCache.Get(modelID); exists {
		attributionModel := cached.(model.AttributionModel)
		return &attributionModel, http.StatusFound
	}
	db := C.GetServices().Db

	var attributionModel model.AttributionModel
	if err := db.Where("id = ?", modelID).First(&attributionModel).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		log.WithFields(logFields).WithError(err).Error("Failed to get attribution model.")
		return nil, http.StatusInternalServerError
	}
	attributionModelCache.Add(modelID, attributionModel)
	return &attributionModel, http.StatusFound
}

func (store *Postgres) SetAttributionModelActive(modelID string, active bool) int {
	logFields := log.Fields{"model_id": modelID, "active": active}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	query := db.Model(&model.AttributionModel{}).Where("id = ?", modelID).
		Update("active", active)
	if query.Error != nil {
		log.WithFields(logFields).WithError(query.Error).Error("Failed to set attribution model active.")
		return http.StatusInternalServerError
	}
	if query.RowsAffected == 0 {
		return http.StatusNotFound
	}
	// Activation state lives outside the cache, but drop the entry anyway so
	// readers of the full row see the transition.
	attributionModelCache.Remove(modelID)
	return http.StatusAccepted
}

func (store *Postgres) SetDefaultAttributionModel(modelID string) int {
	logFields := log.Fields{"model_id": modelID}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	logCtx := log.WithFields(logFields)
	db := C.GetServices().Db

	tx := db.Begin()
	err := tx.Model(&model.AttributionModel{}).Where(`"default" = ?`, true).
		Update("default", false).Error
	if err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to demote previous default model.")
		return http.StatusInternalServerError
	}

	query := tx.Model(&model.AttributionModel{}).Where("id = ?", modelID).
		Update("default", true)
	if query.Error != nil {
		tx.Rollback()
		logCtx.WithError(query.Error).Error("Failed to set default attribution model.")
		return http.StatusInternalServerError
	}
	if query.RowsAffected == 0 {
		tx.Rollback()
		return http.StatusNotFound
	}
	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit default model change.")
		return http.StatusInternalServerError
	}
	attributionModelCache.Remove(modelID)
	return http.StatusAccepted
}
