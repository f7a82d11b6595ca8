package postgres

import (
	"context"

	"github.com/frahmantamala/lead-management/internal/activity"
	activityDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/activity"
	"gorm.io/gorm"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) activity.RepositoryAPI {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) ListByLead(ctx context.Context, leadID int64) ([]*activity.Activity, error) {
	var rows []*activityDatamodel.Activity
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("lead_id = ?", leadID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*activity.Activity, 0, len(rows))
	for _, row := range rows {
		out = append(out, activity.FromDataModel(row))
	}
	return out, nil
}

func (r *ActivityRepository) Create(ctx context.Context, entry activity.Entry) (*activity.Activity, error) {
	row := entry.ToDataModel()
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Preload("User").First(row, row.ID).Error; err != nil {
		return nil, err
	}
	return activity.FromDataModel(row), nil
}
