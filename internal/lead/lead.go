package lead

import (
	"context"
	"strings"
	"time"

	"github.com/frahmantamala/lead-management/internal/activity"
	"github.com/frahmantamala/lead-management/internal/core/common/pagination"
	leadDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/lead"
	"github.com/frahmantamala/lead-management/internal/user"
)

type Status string

const (
	StatusNew       Status = "NEW"
	StatusContacted Status = "CONTACTED"
	StatusQualified Status = "QUALIFIED"
	StatusWon       Status = "WON"
	StatusLost      Status = "LOST"
)

var AllStatuses = []Status{StatusNew, StatusContacted, StatusQualified, StatusWon, StatusLost}

func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func StatusNames() []string {
	out := make([]string, len(AllStatuses))
	for i, s := range AllStatuses {
		out[i] = string(s)
	}
	return out
}

const ActionUpdate = "UPDATE"

type Lead struct {
	ID          int64         `json:"id"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	Company     string        `json:"company"`
	Status      Status        `json:"status"`
	Source      string        `json:"source"`
	Notes       string        `json:"notes"`
	OwnerID     int64         `json:"owner_id"`
	CreatedByID int64         `json:"created_by_id"`
	UpdatedByID int64         `json:"updated_by_id"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Owner       *user.Summary `json:"owner,omitempty"`
	CreatedBy   *user.Summary `json:"created_by,omitempty"`
	UpdatedBy   *user.Summary `json:"updated_by,omitempty"`
}

func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

type HistoryEntry struct {
	ID        int64         `json:"id"`
	LeadID    int64         `json:"lead_id"`
	UserID    int64         `json:"user_id"`
	Action    string        `json:"action"`
	Field     string        `json:"field"`
	OldValue  *string       `json:"old_value"`
	NewValue  *string       `json:"new_value"`
	CreatedAt time.Time     `json:"created_at"`
	User      *user.Summary `json:"user,omitempty"`
}

// Detail is the GET /leads/{id} envelope.
type Detail struct {
	Lead    *Lead           `json:"lead"`
	History []*HistoryEntry `json:"history"`
}

type ListFilter struct {
	Status  Status
	Source  string
	OwnerID int64
	Search  string
	pagination.Params
}

// UpdatePlan is everything one PATCH writes. The repository applies it in a
// single transaction guarded by ExpectedVersion.
type UpdatePlan struct {
	LeadID          int64
	ExpectedVersion int64
	Columns         map[string]interface{}
	History         []HistoryEntry
	Activities      []activity.Entry
}

type RepositoryAPI interface {
	Create(ctx context.Context, l *Lead, created activity.Entry) error
	GetByID(ctx context.Context, id int64) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*Lead, int64, error)
	ApplyUpdate(ctx context.Context, plan UpdatePlan) error
	History(ctx context.Context, leadID int64) ([]*HistoryEntry, error)
	RecordActivity(ctx context.Context, entry activity.Entry) error
	Delete(ctx context.Context, id int64) error
}

// UserLookup resolves owners and actors.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

func ToDataModel(l *Lead) *leadDatamodel.Lead {
	return &leadDatamodel.Lead{
		ID:          l.ID,
		FirstName:   l.FirstName,
		LastName:    l.LastName,
		Email:       l.Email,
		Phone:       l.Phone,
		Company:     l.Company,
		Status:      string(l.Status),
		Source:      l.Source,
		Notes:       l.Notes,
		OwnerID:     l.OwnerID,
		CreatedByID: l.CreatedByID,
		UpdatedByID: l.UpdatedByID,
		Version:     l.Version,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func FromDataModel(l *leadDatamodel.Lead) *Lead {
	return &Lead{
		ID:          l.ID,
		FirstName:   l.FirstName,
		LastName:    l.LastName,
		Email:       l.Email,
		Phone:       l.Phone,
		Company:     l.Company,
		Status:      Status(l.Status),
		Source:      l.Source,
		Notes:       l.Notes,
		OwnerID:     l.OwnerID,
		CreatedByID: l.CreatedByID,
		UpdatedByID: l.UpdatedByID,
		Version:     l.Version,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		Owner:       user.SummaryFromDataModel(l.Owner),
		CreatedBy:   user.SummaryFromDataModel(l.CreatedBy),
		UpdatedBy:   user.SummaryFromDataModel(l.UpdatedBy),
	}
}

func HistoryFromDataModel(h *leadDatamodel.LeadHistory) *HistoryEntry {
	return &HistoryEntry{
		ID:        h.ID,
		LeadID:    h.LeadID,
		UserID:    h.UserID,
		Action:    h.Action,
		Field:     h.Field,
		OldValue:  h.OldValue,
		NewValue:  h.NewValue,
		CreatedAt: h.CreatedAt,
		User:      user.SummaryFromDataModel(h.User),
	}
}
