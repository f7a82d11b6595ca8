package source

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/lead-management/internal"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetActiveSources(ctx context.Context) ([]SourceResponse, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get lead sources from repository", "error", err)
		return nil, internal.NewInternalError("failed to get lead sources", err)
	}

	responses := make([]SourceResponse, 0, len(all))
	for _, src := range all {
		if src.IsActive {
			responses = append(responses, src.ToResponse())
		}
	}

	s.logger.DebugContext(ctx, "retrieved lead sources", "count", len(responses))
	return responses, nil
}

func (s *Service) CreateSource(ctx context.Context, dto CreateSourceDTO) (*Source, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	src := &Source{Name: dto.Name, Description: dto.Description, IsActive: true}
	if err := s.repo.Create(ctx, src); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to create lead source", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create lead source", err)
	}

	s.logger.InfoContext(ctx, "lead source created", "source_id", src.ID, "name", src.Name)
	return src, nil
}

func (s *Service) UpdateSource(ctx context.Context, id int64, dto UpdateSourceDTO) (*Source, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, *dto.IsActive); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to update lead source", err)
	}
	src, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to load lead source", err)
	}
	return src, nil
}

// EnsureDefaults inserts any missing default source and reports how many
// were added.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	added := 0
	for _, def := range Defaults {
		existing, err := s.repo.GetByName(ctx, def.Name)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}
		src := def
		if err := s.repo.Create(ctx, &src); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
