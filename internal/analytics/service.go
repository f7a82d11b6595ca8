package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/lead"
)

type Service struct {
	repo   RepositoryAPI
	policy auth.LeadVisibilityPolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ScopeFor limits SALES users to the leads they own.
func (s *Service) ScopeFor(p *auth.Principal) Scope {
	return Scope{OwnerID: s.policy.OwnerScope(p)}
}

// Snapshot computes the aggregates broadcast to observers.
func (s *Service) Snapshot(ctx context.Context) (*Aggregates, error) {
	return s.Summary(ctx, Scope{})
}

func (s *Service) Summary(ctx context.Context, scope Scope) (*Aggregates, error) {
	total, err := s.repo.CountTotal(ctx, scope)
	if err != nil {
		return nil, s.fail(ctx, "total", err)
	}

	byStatus, err := s.StatusCounts(ctx, scope)
	if err != nil {
		return nil, err
	}

	bySource, err := s.repo.CountBySource(ctx, scope)
	if err != nil {
		return nil, s.fail(ctx, "source", err)
	}

	byOwner, err := s.repo.CountByOwner(ctx, scope)
	if err != nil {
		return nil, s.fail(ctx, "owner", err)
	}

	return &Aggregates{
		Total:       total,
		ByStatus:    byStatus,
		BySource:    bySource,
		ByOwner:     byOwner,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *Service) StatusCounts(ctx context.Context, scope Scope) (map[string]int64, error) {
	rows, err := s.repo.CountByStatus(ctx, scope)
	if err != nil {
		return nil, s.fail(ctx, "status", err)
	}

	out := make(map[string]int64, len(lead.AllStatuses))
	for _, st := range lead.AllStatuses {
		out[string(st)] = 0
	}
	for _, row := range rows {
		out[row.Status] += row.Count
	}
	return out, nil
}

func (s *Service) SourceCounts(ctx context.Context, scope Scope) ([]SourceCount, error) {
	rows, err := s.repo.CountBySource(ctx, scope)
	if err != nil {
		return nil, s.fail(ctx, "source", err)
	}
	return rows, nil
}

func (s *Service) OwnerCounts(ctx context.Context, scope Scope) ([]OwnerCount, error) {
	rows, err := s.repo.CountByOwner(ctx, scope)
	if err != nil {
		return nil, s.fail(ctx, "owner", err)
	}
	return rows, nil
}

func (s *Service) fail(ctx context.Context, breakdown string, err error) error {
	s.logger.ErrorContext(ctx, "failed to compute lead aggregates", "breakdown", breakdown, "error", err)
	return internal.NewInternalError("failed to compute lead analytics", err)
}
