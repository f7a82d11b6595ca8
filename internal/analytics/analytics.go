package analytics

import (
	"context"
	"time"
)

const (
	MessageTypeAnalyticsUpdate    = "analytics_update"
	MessageTypeLeadActivityUpdate = "lead_activity_update"

	UnknownSource = "UNKNOWN"
)

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int64  `db:"total" json:"count"`
}

type SourceCount struct {
	Source string `db:"source" json:"source"`
	Count  int64  `db:"total" json:"count"`
}

type OwnerCount struct {
	OwnerID   int64  `db:"owner_id" json:"owner_id"`
	OwnerName string `db:"owner_name" json:"owner_name"`
	Count     int64  `db:"total" json:"count"`
}

// Aggregates is a point-in-time count of leads. ByStatus always carries every
// status, zero when no lead has it.
type Aggregates struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	BySource    []SourceCount    `json:"by_source"`
	ByOwner     []OwnerCount     `json:"by_owner"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Scope narrows the aggregates to one owner. Zero means every lead.
type Scope struct {
	OwnerID int64
}

type RepositoryAPI interface {
	CountTotal(ctx context.Context, scope Scope) (int64, error)
	CountByStatus(ctx context.Context, scope Scope) ([]StatusCount, error)
	CountBySource(ctx context.Context, scope Scope) ([]SourceCount, error)
	CountByOwner(ctx context.Context, scope Scope) ([]OwnerCount, error)
}

// Message is the envelope pushed to every connected observer.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

func NewMessage(kind string, data interface{}, at time.Time) Message {
	return Message{Type: kind, Data: data, Timestamp: at.UTC().Format(time.RFC3339)}
}

type ActivityUpdate struct {
	LeadID     int64     `json:"lead_id"`
	ActivityID int64     `json:"activity_id"`
	Type       string    `json:"activity_type"`
	CreatedAt  time.Time `json:"created_at"`
}
