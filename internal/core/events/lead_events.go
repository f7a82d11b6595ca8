package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeLeadCreated       = "lead.created"
	EventTypeLeadUpdated       = "lead.updated"
	EventTypeLeadDeleted       = "lead.deleted"
	EventTypeLeadStatusChanged = "lead.status_changed"
	EventTypeLeadOwnerChanged  = "lead.owner_changed"
	EventTypeActivityAdded     = "lead.activity_added"
)

// AllLeadTypes lists every event the lead domain publishes.
var AllLeadTypes = []string{
	EventTypeLeadCreated,
	EventTypeLeadUpdated,
	EventTypeLeadDeleted,
	EventTypeLeadStatusChanged,
	EventTypeLeadOwnerChanged,
	EventTypeActivityAdded,
}

// LeadMutationTypes are the events after which lead aggregates go stale.
var LeadMutationTypes = []string{
	EventTypeLeadCreated,
	EventTypeLeadUpdated,
	EventTypeLeadDeleted,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// LeadChangedEvent covers lead.created, lead.updated and lead.deleted.
type LeadChangedEvent struct {
	BaseEvent
	LeadID        int64    `json:"lead_id"`
	OwnerID       int64    `json:"owner_id"`
	ActorID       int64    `json:"actor_id"`
	ChangedFields []string `json:"changed_fields,omitempty"`
}

func NewLeadChangedEvent(eventType string, leadID, ownerID, actorID int64, changedFields []string) *LeadChangedEvent {
	return &LeadChangedEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"lead_id":        leadID,
			"owner_id":       ownerID,
			"actor_id":       actorID,
			"changed_fields": changedFields,
		}),
		LeadID:        leadID,
		OwnerID:       ownerID,
		ActorID:       actorID,
		ChangedFields: changedFields,
	}
}

type LeadStatusChangedEvent struct {
	BaseEvent
	LeadID    int64  `json:"lead_id"`
	LeadName  string `json:"lead_name"`
	OwnerID   int64  `json:"owner_id"`
	ActorID   int64  `json:"actor_id"`
	ActorName string `json:"actor_name"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

func NewLeadStatusChangedEvent(leadID int64, leadName string, ownerID, actorID int64, actorName, oldStatus, newStatus string) *LeadStatusChangedEvent {
	return &LeadStatusChangedEvent{
		BaseEvent: newBase(EventTypeLeadStatusChanged, map[string]interface{}{
			"lead_id":    leadID,
			"owner_id":   ownerID,
			"actor_id":   actorID,
			"old_status": oldStatus,
			"new_status": newStatus,
		}),
		LeadID:    leadID,
		LeadName:  leadName,
		OwnerID:   ownerID,
		ActorID:   actorID,
		ActorName: actorName,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

type LeadOwnerChangedEvent struct {
	BaseEvent
	LeadID     int64  `json:"lead_id"`
	LeadName   string `json:"lead_name"`
	OldOwnerID int64  `json:"old_owner_id"`
	NewOwnerID int64  `json:"new_owner_id"`
	ActorID    int64  `json:"actor_id"`
	ActorName  string `json:"actor_name"`
}

func NewLeadOwnerChangedEvent(leadID int64, leadName string, oldOwnerID, newOwnerID, actorID int64, actorName string) *LeadOwnerChangedEvent {
	return &LeadOwnerChangedEvent{
		BaseEvent: newBase(EventTypeLeadOwnerChanged, map[string]interface{}{
			"lead_id":      leadID,
			"old_owner_id": oldOwnerID,
			"new_owner_id": newOwnerID,
			"actor_id":     actorID,
		}),
		LeadID:     leadID,
		LeadName:   leadName,
		OldOwnerID: oldOwnerID,
		NewOwnerID: newOwnerID,
		ActorID:    actorID,
		ActorName:  actorName,
	}
}

type ActivityAddedEvent struct {
	BaseEvent
	LeadID     int64     `json:"lead_id"`
	ActivityID int64     `json:"activity_id"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	UserID     int64     `json:"user_id"`
	UserName   string    `json:"user_name"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewActivityAddedEvent(leadID, activityID int64, activityType, content string, userID int64, userName string, createdAt time.Time) *ActivityAddedEvent {
	return &ActivityAddedEvent{
		BaseEvent: newBase(EventTypeActivityAdded, map[string]interface{}{
			"lead_id":     leadID,
			"activity_id": activityID,
			"type":        activityType,
			"user_id":     userID,
		}),
		LeadID:     leadID,
		ActivityID: activityID,
		Type:       activityType,
		Content:    content,
		UserID:     userID,
		UserName:   userName,
		CreatedAt:  createdAt,
	}
}
