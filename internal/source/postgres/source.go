package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/core/database"
	sourceDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/source"
	"github.com/frahmantamala/lead-management/internal/source"
	"gorm.io/gorm"
)

type SourceRepository struct {
	db *gorm.DB
}

func NewSourceRepository(db *gorm.DB) source.RepositoryAPI {
	return &SourceRepository{db: db}
}

func (r *SourceRepository) GetAll(ctx context.Context) ([]*source.Source, error) {
	var rows []*sourceDatamodel.LeadSource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*source.Source, 0, len(rows))
	for _, row := range rows {
		out = append(out, source.FromDataModel(row))
	}
	return out, nil
}

func (r *SourceRepository) GetByName(ctx context.Context, name string) (*source.Source, error) {
	var row sourceDatamodel.LeadSource
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return source.FromDataModel(&row), nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id int64) (*source.Source, error) {
	var row sourceDatamodel.LeadSource
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrSourceNotFound
		}
		return nil, err
	}
	return source.FromDataModel(&row), nil
}

func (r *SourceRepository) Create(ctx context.Context, s *source.Source) error {
	row := source.ToDataModel(s)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return internal.ErrSourceTaken
		}
		return err
	}
	s.ID = row.ID
	s.CreatedAt = row.CreatedAt
	s.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *SourceRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).Model(&sourceDatamodel.LeadSource{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrSourceNotFound
	}
	return nil
}

func (r *SourceRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sourceDatamodel.LeadSource{}).Error
}
