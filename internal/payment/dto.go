package payment

import (
	"time"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/core/common/validation"
)

type InitiatePaymentRequest struct {
	Phone string `json:"phone"`
}

func (r *InitiatePaymentRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()
	validator.Field("phone", r.Phone).Required().MaxLength(20)
	return validator.Validate()
}

type SessionResponse struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	ParentID      string     `json:"parent_id,omitempty"`
	CheckoutID    string     `json:"checkout_id,omitempty"`
	Phone         string     `json:"phone"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Reference     string     `json:"reference"`
	Status        Status     `json:"status"`
	Terminal      bool       `json:"terminal"`
	AttemptsMade  int        `json:"attempts_made"`
	MaxAttempts   int        `json:"max_attempts"`
	Message       string     `json:"message,omitempty"`
	ErrorCode     string     `json:"error_code,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (s *Session) ToResponse() SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		ApplicationID: s.ApplicationID,
		ParentID:      s.ParentID,
		CheckoutID:    s.CheckoutID,
		Phone:         s.Phone,
		Amount:        s.Amount,
		Currency:      s.Currency,
		Reference:     s.Reference,
		Status:        s.Status,
		Terminal:      s.Status.IsTerminal(),
		AttemptsMade:  s.AttemptsMade,
		MaxAttempts:   s.MaxAttempts,
		Message:       s.Message,
		ErrorCode:     outcomeCode(s.Status),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		CompletedAt:   s.CompletedAt,
	}
}

// outcomeCode names why a finished session did not activate the card.
func outcomeCode(status Status) string {
	switch status {
	case StatusFailed:
		return string(errors.ErrCodePaymentFailed)
	case StatusTimeout:
		return string(errors.ErrCodePaymentTimeout)
	}
	return ""
}

type SessionListResponse struct {
	Payments []SessionResponse `json:"payments"`
}
