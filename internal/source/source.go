package source

import (
	"context"
	"time"

	sourceDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/source"
)

// Defaults are the sources seeded into a fresh database.
var Defaults = []Source{
	{Name: "WEBSITE", Description: "Inbound website form", IsActive: true},
	{Name: "REFERRAL", Description: "Referred by a customer or partner", IsActive: true},
	{Name: "COLD_CALL", Description: "Outbound call", IsActive: true},
	{Name: "SOCIAL", Description: "Social media", IsActive: true},
	{Name: "EVENT", Description: "Trade show or event", IsActive: true},
	{Name: "OTHER", Description: "Anything else", IsActive: true},
}

type Source struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Source) ToResponse() SourceResponse {
	return SourceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
	}
}

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*Source, error)
	GetByID(ctx context.Context, id int64) (*Source, error)
	GetByName(ctx context.Context, name string) (*Source, error)
	Create(ctx context.Context, s *Source) error
	SetActive(ctx context.Context, id int64, active bool) error
	DeleteAll(ctx context.Context) error
}

func ToDataModel(s *Source) *sourceDatamodel.LeadSource {
	return &sourceDatamodel.LeadSource{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func FromDataModel(s *sourceDatamodel.LeadSource) *Source {
	return &Source{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
