package lead

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/activity"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/events"
	"github.com/frahmantamala/lead-management/internal/user"
)

type Service struct {
	repo        RepositoryAPI
	users       UserLookup
	publisher   events.Publisher
	policy      auth.LeadVisibilityPolicy
	phoneRegion string
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, users UserLookup, publisher events.Publisher, phoneRegion string, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		publisher:   publisher,
		phoneRegion: phoneRegion,
		logger:      logger,
	}
}

func (s *Service) CreateLead(ctx context.Context, p *auth.Principal, dto CreateLeadDTO) (*Lead, error) {
	dto.Normalize(s.phoneRegion)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ownerID := p.ID
	if dto.OwnerID != nil && *dto.OwnerID != p.ID {
		if err := s.policy.CanReassign(p); err != nil {
			return nil, err
		}
		if _, err := s.lookupOwner(ctx, *dto.OwnerID); err != nil {
			return nil, err
		}
		ownerID = *dto.OwnerID
	}

	l := &Lead{
		FirstName:   dto.FirstName,
		LastName:    dto.LastName,
		Email:       dto.Email,
		Phone:       dto.Phone,
		Company:     dto.Company,
		Status:      Status(dto.Status),
		Source:      dto.Source,
		Notes:       dto.Notes,
		OwnerID:     ownerID,
		CreatedByID: p.ID,
		UpdatedByID: p.ID,
		Version:     1,
	}
	created := activity.Entry{UserID: p.ID, Type: activity.TypeSystem, Content: "Lead created"}
	if err := s.repo.Create(ctx, l, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to create lead", "error", err)
		return nil, internal.NewInternalError("failed to create lead", err)
	}

	s.logger.InfoContext(ctx, "lead created", "lead_id", l.ID, "owner_id", l.OwnerID, "actor_id", p.ID)
	s.publish(ctx, events.NewLeadChangedEvent(events.EventTypeLeadCreated, l.ID, l.OwnerID, p.ID, nil))

	return s.load(ctx, l.ID)
}

// CheckLeadAccess loads the lead and applies the row-level rule.
func (s *Service) CheckLeadAccess(ctx context.Context, p *auth.Principal, leadID int64) error {
	l, err := s.load(ctx, leadID)
	if err != nil {
		return err
	}
	return s.policy.CanAccessLead(p, l.OwnerID)
}

func (s *Service) GetLead(ctx context.Context, p *auth.Principal, id int64) (*Detail, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanAccessLead(p, l.OwnerID); err != nil {
		return nil, err
	}

	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load lead history", err)
	}
	if history == nil {
		history = []*HistoryEntry{}
	}
	return &Detail{Lead: l, History: history}, nil
}

func (s *Service) ListLeads(ctx context.Context, p *auth.Principal, filter ListFilter) ([]*Lead, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, internal.NewValidationFieldError("status", "unknown lead status", internal.ErrCodeInvalidStatus)
	}
	if scope := s.policy.OwnerScope(p); scope != 0 {
		filter.OwnerID = scope
	}
	filter.Params = filter.Params.Normalize()

	leads, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list leads", "error", err)
		return nil, 0, internal.NewInternalError("failed to list leads", err)
	}
	return leads, total, nil
}

func (s *Service) GetLeadHistory(ctx context.Context, p *auth.Principal, id int64) ([]*HistoryEntry, error) {
	if err := s.CheckLeadAccess(ctx, p, id); err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load lead history", err)
	}
	if history == nil {
		history = []*HistoryEntry{}
	}
	return history, nil
}

type fieldChange struct {
	field string
	value interface{}
	old   *string
	new   *string
}

func (s *Service) UpdateLead(ctx context.Context, p *auth.Principal, id int64, dto UpdateLeadDTO) (*Lead, error) {
	dto.Normalize(s.phoneRegion)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanAccessLead(p, current.OwnerID); err != nil {
		return nil, err
	}

	var newOwner *user.User
	if dto.OwnerID != nil && *dto.OwnerID != current.OwnerID {
		if err := s.policy.CanReassign(p); err != nil {
			return nil, err
		}
		if newOwner, err = s.lookupOwner(ctx, *dto.OwnerID); err != nil {
			return nil, err
		}
	}

	if dto.Version != nil && *dto.Version != current.Version {
		return nil, internal.ErrLeadVersionClash
	}

	changes := diff(current, dto)
	if len(changes) == 0 {
		return current, nil
	}

	if contactCleared(current, changes) {
		return nil, internal.NewValidationFieldError("email", "either email or phone is required", internal.ErrCodeMissingContact)
	}

	plan := UpdatePlan{
		LeadID:          id,
		ExpectedVersion: current.Version,
		Columns: map[string]interface{}{
			"updated_by_id": p.ID,
			"version":       current.Version + 1,
		},
	}
	changed := make([]string, 0, len(changes))
	var statusChange *fieldChange
	for i := range changes {
		c := changes[i]
		plan.Columns[c.field] = c.value
		plan.History = append(plan.History, HistoryEntry{
			LeadID:   id,
			UserID:   p.ID,
			Action:   ActionUpdate,
			Field:    c.field,
			OldValue: c.old,
			NewValue: c.new,
		})
		changed = append(changed, c.field)
		if c.field == "status" {
			statusChange = &changes[i]
		}
	}

	if statusChange != nil {
		plan.Activities = append(plan.Activities, activity.Entry{
			LeadID:  id,
			UserID:  p.ID,
			Type:    activity.TypeStatusChange,
			Content: fmt.Sprintf("Status changed from %s to %s by %s", current.Status, statusChange.value, p.Name),
		})
	}
	if newOwner != nil {
		plan.Activities = append(plan.Activities, activity.Entry{
			LeadID:  id,
			UserID:  p.ID,
			Type:    activity.TypeAssignment,
			Content: fmt.Sprintf("Ownership transferred to %s", newOwner.Name),
		})
	}

	if err := s.repo.ApplyUpdate(ctx, plan); err != nil {
		if errors.Is(err, internal.ErrLeadVersionClash) || errors.Is(err, internal.ErrLeadNotFound) {
			s.logger.WarnContext(ctx, "lead update lost a race", "lead_id", id, "version", current.Version, "error", err)
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to update lead", "lead_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update lead", err)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "lead updated", "lead_id", id, "actor_id", p.ID, "fields", changed, "version", updated.Version)

	s.publish(ctx, events.NewLeadChangedEvent(events.EventTypeLeadUpdated, id, updated.OwnerID, p.ID, changed))
	if statusChange != nil {
		s.publish(ctx, events.NewLeadStatusChangedEvent(id, updated.FullName(), updated.OwnerID, p.ID, p.Name,
			string(current.Status), string(updated.Status)))
	}
	if newOwner != nil {
		s.publish(ctx, events.NewLeadOwnerChangedEvent(id, updated.FullName(), current.OwnerID, newOwner.ID, p.ID, p.Name))
	}

	return updated, nil
}

// TransferLead is an owner-only update reserved for ADMIN and MANAGER.
func (s *Service) TransferLead(ctx context.Context, p *auth.Principal, id int64, dto TransferLeadDTO) (*Lead, error) {
	if err := s.policy.CanReassign(p); err != nil {
		return nil, err
	}
	ownerID := dto.Target()
	if ownerID <= 0 {
		return nil, internal.NewValidationFieldError("newOwnerId", "newOwnerId is required", internal.ErrCodeValidationFailed)
	}
	return s.UpdateLead(ctx, p, id, UpdateLeadDTO{OwnerID: &ownerID, Version: dto.Version})
}

func (s *Service) DeleteLead(ctx context.Context, p *auth.Principal, id int64) error {
	if err := s.policy.CanDelete(p); err != nil {
		return err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	note := activity.Entry{
		LeadID:  id,
		UserID:  p.ID,
		Type:    activity.TypeSystem,
		Content: fmt.Sprintf("Lead deleted by %s", p.Name),
	}
	if err := s.repo.RecordActivity(ctx, note); err != nil {
		s.logger.WarnContext(ctx, "failed to record deletion activity", "lead_id", id, "error", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, internal.ErrLeadNotFound) {
			return err
		}
		s.logger.ErrorContext(ctx, "failed to delete lead", "lead_id", id, "error", err)
		return internal.NewInternalError("failed to delete lead", err)
	}

	s.logger.InfoContext(ctx, "lead deleted", "lead_id", id, "actor_id", p.ID)
	s.publish(ctx, events.NewLeadChangedEvent(events.EventTypeLeadDeleted, id, current.OwnerID, p.ID, nil))
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Lead, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrLeadNotFound) {
			return nil, internal.ErrLeadNotFound
		}
		return nil, internal.NewInternalError("failed to load lead", err)
	}
	return l, nil
}

func (s *Service) lookupOwner(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrOwnerNotFound
		}
		return nil, internal.NewInternalError("failed to load owner", err)
	}
	return u, nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish lead event", "event_type", evt.EventType(), "error", err)
	}
}

// diff compares the PATCH body against the stored row. Fields are visited in
// a fixed order so history rows are stable.
func diff(current *Lead, dto UpdateLeadDTO) []fieldChange {
	var out []fieldChange
	str := func(field, old string, next *string) {
		if next == nil || *next == old {
			return
		}
		out = append(out, fieldChange{field: field, value: *next, old: stringify(old), new: stringify(*next)})
	}

	str("first_name", current.FirstName, dto.FirstName)
	str("last_name", current.LastName, dto.LastName)
	str("email", current.Email, dto.Email)
	str("phone", current.Phone, dto.Phone)
	str("company", current.Company, dto.Company)
	str("status", string(current.Status), dto.Status)
	str("source", current.Source, dto.Source)
	str("notes", current.Notes, dto.Notes)

	if dto.OwnerID != nil && *dto.OwnerID != current.OwnerID {
		out = append(out, fieldChange{
			field: "owner_id",
			value: *dto.OwnerID,
			old:   stringify(strconv.FormatInt(current.OwnerID, 10)),
			new:   stringify(strconv.FormatInt(*dto.OwnerID, 10)),
		})
	}
	return out
}

func contactCleared(current *Lead, changes []fieldChange) bool {
	email, phone := current.Email, current.Phone
	for _, c := range changes {
		switch c.field {
		case "email":
			email, _ = c.value.(string)
		case "phone":
			phone, _ = c.value.(string)
		}
	}
	return email == "" && phone == ""
}

// stringify maps an empty value to a NULL history column.
func stringify(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
