package activity

import (
	"context"
	"time"

	"github.com/frahmantamala/lead-management/internal/auth"
	activityDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/activity"
	"github.com/frahmantamala/lead-management/internal/user"
)

type Type string

const (
	TypeNote    Type = "NOTE"
	TypeCall    Type = "CALL"
	TypeMeeting Type = "MEETING"
	TypeEmail   Type = "EMAIL"

	// written by the lead service only
	TypeStatusChange Type = "STATUS_CHANGE"
	TypeAssignment   Type = "ASSIGNMENT"
	TypeSystem       Type = "SYSTEM"
)

const MaxContentLength = 5000

var ManualTypes = []Type{TypeNote, TypeCall, TypeMeeting, TypeEmail}

func (t Type) IsManual() bool {
	for _, m := range ManualTypes {
		if t == m {
			return true
		}
	}
	return false
}

type Activity struct {
	ID        int64         `json:"id"`
	LeadID    int64         `json:"lead_id"`
	UserID    int64         `json:"user_id"`
	Type      Type          `json:"type"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	User      *user.Summary `json:"user,omitempty"`
}

// Entry is an activity that has not been stored yet.
type Entry struct {
	LeadID  int64
	UserID  int64
	Type    Type
	Content string
}

func (e Entry) ToDataModel() *activityDatamodel.Activity {
	return &activityDatamodel.Activity{
		LeadID:  e.LeadID,
		UserID:  e.UserID,
		Type:    string(e.Type),
		Content: e.Content,
	}
}

func FromDataModel(a *activityDatamodel.Activity) *Activity {
	return &Activity{
		ID:        a.ID,
		LeadID:    a.LeadID,
		UserID:    a.UserID,
		Type:      Type(a.Type),
		Content:   a.Content,
		CreatedAt: a.CreatedAt,
		User:      user.SummaryFromDataModel(a.User),
	}
}

type RepositoryAPI interface {
	ListByLead(ctx context.Context, leadID int64) ([]*Activity, error)
	Create(ctx context.Context, entry Entry) (*Activity, error)
}

// LeadAccessChecker applies the lead row-level rule before any timeline access.
type LeadAccessChecker interface {
	CheckLeadAccess(ctx context.Context, p *auth.Principal, leadID int64) error
}
