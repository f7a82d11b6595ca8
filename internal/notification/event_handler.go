package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/lead-management/internal/core/events"
)

type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

func (h *EventHandler) HandleOwnerChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.LeadOwnerChangedEvent)
	if !ok {
		h.logger.Error("invalid event type for owner changed handler", "event_type", event.EventType())
		return fmt.Errorf("expected LeadOwnerChangedEvent, got %T", event)
	}
	if e.NewOwnerID == 0 || e.NewOwnerID == e.ActorID {
		return nil
	}

	message := fmt.Sprintf("%s assigned lead %q to you", e.ActorName, e.LeadName)
	if _, err := h.service.Notify(ctx, e.NewOwnerID, e.LeadID, TypeLeadAssigned, message); err != nil {
		return err
	}

	h.service.Email(ctx, e.NewOwnerID, "New lead assigned: "+e.LeadName, h.withLink(message, e.LeadID))
	return nil
}

// HandleStatusChanged emails the owner on every status change and adds an
// in-app notification when someone else made the change.
func (h *EventHandler) HandleStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.LeadStatusChangedEvent)
	if !ok {
		h.logger.Error("invalid event type for status changed handler", "event_type", event.EventType())
		return fmt.Errorf("expected LeadStatusChangedEvent, got %T", event)
	}
	if e.OwnerID == 0 {
		return nil
	}

	message := fmt.Sprintf("Lead %q status changed from %s to %s by %s", e.LeadName, e.OldStatus, e.NewStatus, e.ActorName)
	if e.ActorID != e.OwnerID {
		if _, err := h.service.Notify(ctx, e.OwnerID, e.LeadID, TypeStatusChanged, message); err != nil {
			return err
		}
	}

	h.service.Email(ctx, e.OwnerID, "Lead status updated: "+e.LeadName, h.withLink(message, e.LeadID))
	return nil
}

func (h *EventHandler) withLink(message string, leadID int64) string {
	if url := h.service.leadURL(leadID); url != "" {
		return message + "\n\n" + url
	}
	return message
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeLeadOwnerChanged, h.HandleOwnerChanged)
	eventBus.Subscribe(events.EventTypeLeadStatusChanged, h.HandleStatusChanged)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypeLeadOwnerChanged, events.EventTypeLeadStatusChanged})
}
