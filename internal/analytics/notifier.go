package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/lead-management/internal/core/events"
)

type Snapshotter interface {
	Snapshot(ctx context.Context) (*Aggregates, error)
}

// Notifier recomputes the aggregates after a lead mutation and pushes them to
// the hub. Delivery is best-effort and never replayed.
type Notifier struct {
	snapshots Snapshotter
	hub       *Hub
	logger    *slog.Logger
	now       func() time.Time
}

func NewNotifier(snapshots Snapshotter, hub *Hub, logger *slog.Logger) *Notifier {
	return &Notifier{
		snapshots: snapshots,
		hub:       hub,
		logger:    logger,
		now:       time.Now,
	}
}

// SnapshotMessage builds the analytics_update envelope from fresh aggregates.
func (n *Notifier) SnapshotMessage(ctx context.Context) (Message, error) {
	snap, err := n.snapshots.Snapshot(ctx)
	if err != nil {
		return Message{}, err
	}
	return NewMessage(MessageTypeAnalyticsUpdate, snap, n.now()), nil
}

func (n *Notifier) HandleLeadMutation(ctx context.Context, event events.Event) error {
	if n.hub.Count() == 0 {
		return nil
	}

	msg, err := n.SnapshotMessage(ctx)
	if err != nil {
		return fmt.Errorf("recompute aggregates after %s: %w", event.EventType(), err)
	}

	delivered := n.hub.Broadcast(msg)
	n.logger.Debug("analytics update broadcast",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"observers", delivered)
	return nil
}

func (n *Notifier) HandleActivityAdded(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ActivityAddedEvent)
	if !ok {
		n.logger.Error("invalid event type for activity added handler", "event_type", event.EventType())
		return fmt.Errorf("expected ActivityAddedEvent, got %T", event)
	}

	n.hub.Broadcast(NewMessage(MessageTypeLeadActivityUpdate, ActivityUpdate{
		LeadID:     e.LeadID,
		ActivityID: e.ActivityID,
		Type:       e.Type,
		CreatedAt:  e.CreatedAt,
	}, n.now()))
	return nil
}

func (n *Notifier) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, eventType := range events.LeadMutationTypes {
		eventBus.Subscribe(eventType, n.HandleLeadMutation)
	}
	eventBus.Subscribe(events.EventTypeActivityAdded, n.HandleActivityAdded)

	n.logger.Info("analytics event handlers registered",
		"handlers", append(append([]string(nil), events.LeadMutationTypes...), events.EventTypeActivityAdded))
}
