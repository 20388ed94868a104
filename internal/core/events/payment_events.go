package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentTimedOut  = "payment.timeout"
)

// PaymentOutcomeEvent announces the terminal state of one payment session.
type PaymentOutcomeEvent struct {
	BaseEvent
	SessionID     string `json:"session_id"`
	ApplicationID string `json:"application_id"`
	UserID        string `json:"user_id"`
	CheckoutID    string `json:"checkout_id"`
	Amount        int64  `json:"amount"`
	Attempts      int    `json:"attempts"`
	Message       string `json:"message,omitempty"`
}

func newPaymentOutcomeEvent(eventType, sessionID, applicationID, userID, checkoutID string, amount int64, attempts int, message string) *PaymentOutcomeEvent {
	return &PaymentOutcomeEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"session_id":     sessionID,
				"application_id": applicationID,
				"user_id":        userID,
				"checkout_id":    checkoutID,
				"amount":         amount,
				"attempts":       attempts,
				"message":        message,
			},
		},
		SessionID:     sessionID,
		ApplicationID: applicationID,
		UserID:        userID,
		CheckoutID:    checkoutID,
		Amount:        amount,
		Attempts:      attempts,
		Message:       message,
	}
}

func NewPaymentConfirmedEvent(sessionID, applicationID, userID, checkoutID string, amount int64, attempts int) *PaymentOutcomeEvent {
	return newPaymentOutcomeEvent(EventTypePaymentConfirmed, sessionID, applicationID, userID, checkoutID, amount, attempts, "")
}

func NewPaymentFailedEvent(sessionID, applicationID, userID, checkoutID string, amount int64, attempts int, reason string) *PaymentOutcomeEvent {
	return newPaymentOutcomeEvent(EventTypePaymentFailed, sessionID, applicationID, userID, checkoutID, amount, attempts, reason)
}

func NewPaymentTimedOutEvent(sessionID, applicationID, userID, checkoutID string, amount int64, attempts int) *PaymentOutcomeEvent {
	return newPaymentOutcomeEvent(EventTypePaymentTimedOut, sessionID, applicationID, userID, checkoutID, amount, attempts, "")
}
