package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/mail"
)

// NotificationService turns domain events into outbound email. Delivery
// failures are logged and never propagate back into the workflow that
// triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   mail.Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier mail.Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleCreated)
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventComplaintAssigned, n.handleAssigned)
}

func (n *NotificationService) handleCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintCreatedPayload)
	if !ok || payload.NotifyEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Complaint %s received", event.TicketNumber)
	body := fmt.Sprintf("Your complaint %q has been registered under ticket %s.", payload.Title, event.TicketNumber)
	if payload.TrackingToken != "" {
		body += fmt.Sprintf(" Track its progress with token %s.", payload.TrackingToken)
	}
	n.send(ctx, payload.NotifyEmail, subject, body, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintStatusChangedPayload)
	if !ok || payload.NotifyEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Complaint %s is now %s", event.TicketNumber, payload.NewStatus)
	body := fmt.Sprintf("The status of complaint %s changed from %s to %s.",
		event.TicketNumber, payload.OldStatus, payload.NewStatus)
	if payload.Notes != "" {
		body += "\n\nNotes: " + payload.Notes
	}
	n.send(ctx, payload.NotifyEmail, subject, body, event)
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintAssignedPayload)
	if !ok || payload.AssigneeEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Complaint %s assigned to you", event.TicketNumber)
	body := fmt.Sprintf("Complaint %s has been assigned to you.", event.TicketNumber)
	if payload.Escalated {
		subject = fmt.Sprintf("Complaint %s escalated to you", event.TicketNumber)
		body = fmt.Sprintf("Complaint %s has been escalated to you.", event.TicketNumber)
	}
	n.send(ctx, payload.AssigneeEmail, subject, body, event)
	return nil
}

func (n *NotificationService) send(ctx context.Context, to, subject, body string, event events.Event) {
	if n.notifier == nil {
		return
	}
	if err := n.notifier.Send(ctx, to, subject, body); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("complaint_id", event.ComplaintID),
			zap.Error(err),
		)
	}
}
