package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/activity"
	activityDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/activity"
	leadDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/lead"
	"github.com/frahmantamala/lead-management/internal/lead"
	"gorm.io/gorm"
)

// likeEscaper makes user search terms match literally inside LIKE patterns.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) lead.RepositoryAPI {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, l *lead.Lead, created activity.Entry) error {
	row := lead.ToDataModel(l)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		created.LeadID = row.ID
		return tx.Create(created.ToDataModel()).Error
	})
	if err != nil {
		return err
	}

	l.ID = row.ID
	l.CreatedAt = row.CreatedAt
	l.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*lead.Lead, error) {
	var row leadDatamodel.Lead
	err := r.db.WithContext(ctx).
		Preload("Owner").Preload("CreatedBy").Preload("UpdatedBy").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrLeadNotFound
		}
		return nil, err
	}
	return lead.FromDataModel(&row), nil
}

func (r *LeadRepository) List(ctx context.Context, filter lead.ListFilter) ([]*lead.Lead, int64, error) {
	q := r.db.WithContext(ctx).Model(&leadDatamodel.Lead{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.Search)) + "%"
		q = q.Where(`LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*leadDatamodel.Lead
	err := q.Session(&gorm.Session{}).
		Preload("Owner").
		Order("created_at DESC").Order("id DESC").
		Limit(filter.Limit).Offset(filter.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*lead.Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, lead.FromDataModel(row))
	}
	return out, total, nil
}

// ApplyUpdate writes the row, its history and its activities atomically. A
// version mismatch rolls everything back.
func (r *LeadRepository) ApplyUpdate(ctx context.Context, plan lead.UpdatePlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&leadDatamodel.Lead{}).
			Where("id = ? AND version = ?", plan.LeadID, plan.ExpectedVersion).
			Updates(plan.Columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&leadDatamodel.Lead{}).Where("id = ?", plan.LeadID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return internal.ErrLeadNotFound
			}
			return internal.ErrLeadVersionClash
		}

		if len(plan.History) > 0 {
			rows := make([]*leadDatamodel.LeadHistory, 0, len(plan.History))
			for _, h := range plan.History {
				rows = append(rows, &leadDatamodel.LeadHistory{
					LeadID:   h.LeadID,
					UserID:   h.UserID,
					Action:   h.Action,
					Field:    h.Field,
					OldValue: h.OldValue,
					NewValue: h.NewValue,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		for _, a := range plan.Activities {
			if err := tx.Create(a.ToDataModel()).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *LeadRepository) History(ctx context.Context, leadID int64) ([]*lead.HistoryEntry, error) {
	var rows []*leadDatamodel.LeadHistory
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("lead_id = ?", leadID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*lead.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, lead.HistoryFromDataModel(row))
	}
	return out, nil
}

func (r *LeadRepository) RecordActivity(ctx context.Context, entry activity.Entry) error {
	return r.db.WithContext(ctx).Create(entry.ToDataModel()).Error
}

// Delete removes the lead and its activities. History rows stay behind.
func (r *LeadRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", id).Delete(&activityDatamodel.Activity{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&leadDatamodel.Lead{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrLeadNotFound
		}
		return nil
	})
}
