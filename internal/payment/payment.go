package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	paymentdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/payment"
)

type Status string

const (
	StatusInitiating Status = paymentdatamodel.StatusInitiating
	StatusPending    Status = paymentdatamodel.StatusPending
	StatusProcessing Status = paymentdatamodel.StatusProcessing
	StatusSuccess    Status = paymentdatamodel.StatusSuccess
	StatusFailed     Status = paymentdatamodel.StatusFailed
	StatusTimeout    Status = paymentdatamodel.StatusTimeout
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusTimeout
}

const (
	ConfirmedMessage         = "Payment confirmed. Your card is now active."
	GenericFailureMessage    = "Payment failed. Please try again."
	TimeoutMessage           = "Payment verification timed out. Please check your M-Pesa messages."
	UnverifiedTimeoutMessage = "Payment verification timed out. If you completed the payment, request a recheck."
	AbandonedMessage         = "Payment verification was interrupted. Request a recheck to resume."
	InterruptedPushMessage   = "Payment request was interrupted before reaching your phone. Please start a new payment."
)

// Session is one activation attempt. Once it reaches a terminal status it never changes again.
type Session struct {
	ID              string
	ApplicationID   string
	UserID          string
	ParentID        string
	CheckoutID      string
	Phone           string
	Amount          int64
	Currency        string
	Reference       string
	Description     string
	Status          Status
	AttemptsMade    int
	MaxAttempts     int
	PollInterval    time.Duration
	Message         string
	GatewayResponse string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// Reference builds the merchant reference shown on the payer's statement, e.g. "VISA-WORK-PERMIT".
func Reference(visaType string) string {
	return "VISA-" + strings.ToUpper(strings.Join(strings.Fields(visaType), "-"))
}

func Description(visaType string) string {
	return fmt.Sprintf("Activation fee for %s", visaType)
}

func NewSession(applicationID, userID, phone, visaType string, amount int64, currency string, maxAttempts int, interval time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		UserID:        userID,
		Phone:         phone,
		Amount:        amount,
		Currency:      currency,
		Reference:     Reference(visaType),
		Description:   Description(visaType),
		Status:        StatusInitiating,
		MaxAttempts:   maxAttempts,
		PollInterval:  interval,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Continuation opens a fresh polling budget for the same checkout request.
func (s *Session) Continuation(maxAttempts int, interval time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.NewString(),
		ApplicationID: s.ApplicationID,
		UserID:        s.UserID,
		ParentID:      s.ID,
		CheckoutID:    s.CheckoutID,
		Phone:         s.Phone,
		Amount:        s.Amount,
		Currency:      s.Currency,
		Reference:     s.Reference,
		Description:   s.Description,
		Status:        StatusPending,
		MaxAttempts:   maxAttempts,
		PollInterval:  interval,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *Session) transition(to Status, message string) bool {
	if s.Status.IsTerminal() {
		return false
	}

	now := time.Now()
	s.Status = to
	s.Message = message
	s.UpdatedAt = now
	if to.IsTerminal() {
		s.CompletedAt = &now
	}
	return true
}

// MarkPending records the checkout id handed back by the gateway.
func (s *Session) MarkPending(checkoutID string) bool {
	if s.Status != StatusInitiating {
		return false
	}
	s.CheckoutID = checkoutID
	return s.transition(StatusPending, "")
}

func (s *Session) MarkProcessing() bool {
	if s.Status == StatusProcessing {
		return false
	}
	return s.transition(StatusProcessing, "")
}

func (s *Session) Succeed() bool {
	return s.transition(StatusSuccess, ConfirmedMessage)
}

func (s *Session) Fail(reason string) bool {
	if reason == "" {
		reason = GenericFailureMessage
	}
	return s.transition(StatusFailed, reason)
}

func (s *Session) TimeOut(message string) bool {
	if message == "" {
		message = TimeoutMessage
	}
	return s.transition(StatusTimeout, message)
}

func (s *Session) ToDataModel() *paymentdatamodel.PaymentSession {
	return &paymentdatamodel.PaymentSession{
		ID:              s.ID,
		ApplicationID:   s.ApplicationID,
		UserID:          s.UserID,
		ParentID:        optional(s.ParentID),
		CheckoutID:      optional(s.CheckoutID),
		Phone:           s.Phone,
		Amount:          s.Amount,
		Currency:        s.Currency,
		Reference:       s.Reference,
		Description:     s.Description,
		Status:          string(s.Status),
		AttemptsMade:    s.AttemptsMade,
		MaxAttempts:     s.MaxAttempts,
		PollIntervalMs:  s.PollInterval.Milliseconds(),
		Message:         optional(s.Message),
		GatewayResponse: optional(s.GatewayResponse),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		CompletedAt:     s.CompletedAt,
	}
}

func FromDataModel(row *paymentdatamodel.PaymentSession) *Session {
	return &Session{
		ID:              row.ID,
		ApplicationID:   row.ApplicationID,
		UserID:          row.UserID,
		ParentID:        deref(row.ParentID),
		CheckoutID:      deref(row.CheckoutID),
		Phone:           row.Phone,
		Amount:          row.Amount,
		Currency:        row.Currency,
		Reference:       row.Reference,
		Description:     row.Description,
		Status:          Status(row.Status),
		AttemptsMade:    row.AttemptsMade,
		MaxAttempts:     row.MaxAttempts,
		PollInterval:    time.Duration(row.PollIntervalMs) * time.Millisecond,
		Message:         deref(row.Message),
		GatewayResponse: deref(row.GatewayResponse),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		CompletedAt:     row.CompletedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
