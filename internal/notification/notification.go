package notification

import (
	"context"
	"time"

	"github.com/frahmantamala/lead-management/internal/core/common/pagination"
	notificationDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/notification"
	"github.com/frahmantamala/lead-management/internal/user"
)

type Type string

const (
	TypeLeadAssigned  Type = "LEAD_ASSIGNED"
	TypeStatusChanged Type = "STATUS_CHANGED"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	LeadID    *int64    `json:"lead_id,omitempty"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type ListFilter struct {
	UserID     int64
	UnreadOnly bool
	pagination.Params
}

type RepositoryAPI interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, filter ListFilter) ([]*Notification, int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// UserLookup resolves the recipient of a notification email.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

func (n *Notification) ToDataModel() *notificationDatamodel.Notification {
	return &notificationDatamodel.Notification{
		ID:      n.ID,
		UserID:  n.UserID,
		LeadID:  n.LeadID,
		Type:    string(n.Type),
		Message: n.Message,
		IsRead:  n.IsRead,
	}
}

func FromDataModel(row *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		LeadID:    row.LeadID,
		Type:      Type(row.Type),
		Message:   row.Message,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
	}
}
