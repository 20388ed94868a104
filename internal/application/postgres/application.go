package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/perejack/globalvisaapplication/internal/application"
	applicationDatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
)

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) application.RepositoryAPI {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, app *applicationDatamodel.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*applicationDatamodel.Application, error) {
	var app applicationDatamodel.Application
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepository) ListByUserID(ctx context.Context, userID string) ([]*applicationDatamodel.Application, error) {
	var apps []*applicationDatamodel.Application
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// MarkActive flips is_active once; it reports false when the row was already active or missing.
func (r *ApplicationRepository) MarkActive(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&applicationDatamodel.Application{}).
		Where("id = ? AND is_active = ?", id, false).
		Updates(map[string]interface{}{
			"is_active":  true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
