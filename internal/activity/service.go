package activity

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/events"
)

type Service struct {
	repo      RepositoryAPI
	leads     LeadAccessChecker
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, leads LeadAccessChecker, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		leads:     leads,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) ListActivities(ctx context.Context, p *auth.Principal, leadID int64) ([]*Activity, error) {
	if err := s.leads.CheckLeadAccess(ctx, p, leadID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list activities", "lead_id", leadID, "error", err)
		return nil, internal.NewInternalError("failed to list activities", err)
	}
	return items, nil
}

func (s *Service) CreateActivity(ctx context.Context, p *auth.Principal, leadID int64, dto CreateActivityDTO) (*Activity, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.leads.CheckLeadAccess(ctx, p, leadID); err != nil {
		return nil, err
	}

	a, err := s.repo.Create(ctx, Entry{
		LeadID:  leadID,
		UserID:  p.ID,
		Type:    Type(dto.Type),
		Content: dto.Content,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create activity", "lead_id", leadID, "error", err)
		return nil, internal.NewInternalError("failed to create activity", err)
	}

	s.logger.InfoContext(ctx, "activity added", "lead_id", leadID, "activity_id", a.ID, "type", a.Type)

	if s.publisher != nil {
		evt := events.NewActivityAddedEvent(leadID, a.ID, string(a.Type), a.Content, p.ID, p.Name, a.CreatedAt)
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.WarnContext(ctx, "failed to publish activity event", "lead_id", leadID, "error", err)
		}
	}
	return a, nil
}
