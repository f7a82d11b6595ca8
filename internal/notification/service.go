package notification

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/common/pagination"
	"github.com/frahmantamala/lead-management/internal/mailer"
)

type Service struct {
	repo    RepositoryAPI
	users   UserLookup
	mail    mailer.Queue
	baseURL string
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, users UserLookup, mail mailer.Queue, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mail:    mail,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (s *Service) List(ctx context.Context, p *auth.Principal, unreadOnly bool, params pagination.Params) (pagination.Page[*Notification], error) {
	params = params.Normalize()
	items, total, err := s.repo.List(ctx, ListFilter{UserID: p.ID, UnreadOnly: unreadOnly, Params: params})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list notifications", "user_id", p.ID, "error", err)
		return pagination.Page[*Notification]{}, internal.NewInternalError("failed to list notifications", err)
	}
	return pagination.NewPage(items, total, params), nil
}

func (s *Service) UnreadCount(ctx context.Context, p *auth.Principal) (int64, error) {
	n, err := s.repo.CountUnread(ctx, p.ID)
	if err != nil {
		return 0, internal.NewInternalError("failed to count notifications", err)
	}
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, p *auth.Principal, id int64) error {
	if err := s.repo.MarkRead(ctx, p.ID, id); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewInternalError("failed to update notification", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, p *auth.Principal) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, p.ID)
	if err != nil {
		return 0, internal.NewInternalError("failed to update notifications", err)
	}
	return n, nil
}

// Notify stores an in-app notification for the recipient.
func (s *Service) Notify(ctx context.Context, userID int64, leadID int64, kind Type, message string) (*Notification, error) {
	n := &Notification{UserID: userID, Type: kind, Message: message}
	if leadID > 0 {
		n.LeadID = &leadID
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification for user %d: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "notification created", "user_id", userID, "lead_id", leadID, "type", kind)
	return n, nil
}

// Email queues a message to the user. Lookup and queue failures are logged and
// never returned.
func (s *Service) Email(ctx context.Context, userID int64, subject, body string) {
	if s.mail == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "notification email skipped, recipient lookup failed", "user_id", userID, "error", err)
		return
	}
	if !u.IsActive {
		return
	}

	if err := s.mail.Enqueue(mailer.Message{
		To:        u.Email,
		ToName:    u.Name,
		Subject:   subject,
		PlainText: body,
		HTML:      "<p>" + html.EscapeString(body) + "</p>",
	}); err != nil {
		s.logger.WarnContext(ctx, "notification email not queued", "user_id", userID, "error", err)
	}
}

func (s *Service) leadURL(leadID int64) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/leads/%d", s.baseURL, leadID)
}
