package paymentgateway

import (
	"encoding/json"
	"errors"
	"strings"
)

// STKPushRequest is the body of the push-payment initiation call.
type STKPushRequest struct {
	PhoneNumber string `json:"phone_number"`
	Amount      int64  `json:"amount"`
	TillID      string `json:"till_id"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

func (r *STKPushRequest) Validate() error {
	if r.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.TillID == "" {
		return errors.New("till_id is required")
	}
	if r.Reference == "" {
		return errors.New("reference is required")
	}
	return nil
}

type STKPushData struct {
	CheckoutID string `json:"checkout_id"`
}

// STKPushResponse covers both the success shape ({success, data}) and the error shape ({status, message}).
type STKPushResponse struct {
	Success bool        `json:"success"`
	Status  string      `json:"status,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    STKPushData `json:"data"`
}

type StatusRequest struct {
	CheckoutID string `json:"checkoutId"`
}

type PaymentStatusData struct {
	Status     string          `json:"status"`
	ResultCode json.RawMessage `json:"resultCode,omitempty"`
	ResultDesc string          `json:"resultDesc,omitempty"`
}

type StatusResponse struct {
	Success bool               `json:"success"`
	Payment *PaymentStatusData `json:"payment,omitempty"`
}

// StatusClass buckets the free-form status string reported by the gateway.
type StatusClass int

const (
	StatusClassUnknown StatusClass = iota
	StatusClassSucceeded
	StatusClassFailed
	StatusClassInProgress
)

func (c StatusClass) String() string {
	switch c {
	case StatusClassSucceeded:
		return "succeeded"
	case StatusClassFailed:
		return "failed"
	case StatusClassInProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

var statusClasses = map[string]StatusClass{
	"completed":  StatusClassSucceeded,
	"success":    StatusClassSucceeded,
	"paid":       StatusClassSucceeded,
	"succeeded":  StatusClassSucceeded,
	"failed":     StatusClassFailed,
	"cancelled":  StatusClassFailed,
	"rejected":   StatusClassFailed,
	"processing": StatusClassInProgress,
	"pending":    StatusClassInProgress,
}

// Classify maps a status reply onto a StatusClass. Replies without success=true or
// without a status string are unknown.
func (r *StatusResponse) Classify() StatusClass {
	if r == nil || !r.Success || r.Payment == nil || r.Payment.Status == "" {
		return StatusClassUnknown
	}
	if class, ok := statusClasses[strings.ToLower(strings.TrimSpace(r.Payment.Status))]; ok {
		return class
	}
	return StatusClassUnknown
}

// RawStatus returns the reported status string, or "" when absent.
func (r *StatusResponse) RawStatus() string {
	if r == nil || r.Payment == nil {
		return ""
	}
	return r.Payment.Status
}
