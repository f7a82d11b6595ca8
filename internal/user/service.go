package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
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

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*User, int64, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, internal.NewValidationFieldError("role", "unknown role", internal.ErrCodeInvalidRole)
	}
	filter.Params = filter.Params.Normalize()

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users", "error", err)
		return nil, 0, internal.NewInternalError("failed to list users", err)
	}
	return users, total, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to get user by id", err)
	}
	return u, nil
}

// Update applies an admin edit. An admin may not demote or deactivate their own account.
func (s *Service) Update(ctx context.Context, actor *auth.Principal, id int64, changes Changes) (*User, error) {
	if actor.ID == id {
		if changes.Role != nil && *changes.Role != actor.Role {
			return nil, internal.NewValidationFieldError("role", "you cannot change your own role", internal.ErrCodeSelfModification)
		}
		if changes.IsActive != nil && !*changes.IsActive {
			return nil, internal.NewValidationFieldError("is_active", "you cannot deactivate your own account", internal.ErrCodeSelfModification)
		}
	}

	u, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "failed to update user", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.logger.InfoContext(ctx, "user updated", "user_id", id, "actor_id", actor.ID, "role", u.Role, "is_active", u.IsActive)
	return u, nil
}
