package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/perejack/globalvisaapplication/internal/core/events"
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

func (h *EventHandler) HandlePaymentConfirmed(ctx context.Context, event events.Event) error {
	confirmed, ok := event.(*events.PaymentOutcomeEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	h.logger.Info("activating card after payment",
		"application_id", confirmed.ApplicationID,
		"session_id", confirmed.SessionID,
		"checkout_id", confirmed.CheckoutID)

	return h.service.Activate(ctx, confirmed.ApplicationID)
}

// HandlePaymentUnsettled records that a card stays inactive after a failed or unconfirmed payment.
func (h *EventHandler) HandlePaymentUnsettled(ctx context.Context, event events.Event) error {
	outcome, ok := event.(*events.PaymentOutcomeEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	h.logger.Warn("card remains inactive",
		"application_id", outcome.ApplicationID,
		"session_id", outcome.SessionID,
		"outcome", outcome.EventType(),
		"attempts", outcome.Attempts,
		"message", outcome.Message)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentConfirmed, h.HandlePaymentConfirmed)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentUnsettled)
	eventBus.Subscribe(events.EventTypePaymentTimedOut, h.HandlePaymentUnsettled)
}
