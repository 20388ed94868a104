package payment

import (
	"time"
)

const (
	StatusInitiating = "initiating"
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusTimeout    = "timeout"
)

// PaymentSession is one activation attempt: a single STK push and its confirmation loop.
type PaymentSession struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)"`
	ApplicationID   string     `gorm:"column:application_id;type:varchar(36);not null;index"`
	UserID          string     `gorm:"column:user_id;type:varchar(36);not null"`
	ParentID        *string    `gorm:"column:parent_id;type:varchar(36)"`
	CheckoutID      *string    `gorm:"column:checkout_id;index"`
	Phone           string     `gorm:"column:phone;not null"`
	Amount          int64      `gorm:"column:amount;not null"`
	Currency        string     `gorm:"column:currency;not null"`
	Reference       string     `gorm:"column:reference;not null"`
	Description     string     `gorm:"column:description"`
	Status          string     `gorm:"column:status;not null"`
	AttemptsMade    int        `gorm:"column:attempts_made;not null"`
	MaxAttempts     int        `gorm:"column:max_attempts;not null"`
	PollIntervalMs  int64      `gorm:"column:poll_interval_ms;not null"`
	Message         *string    `gorm:"column:message"`
	GatewayResponse *string    `gorm:"column:gateway_response"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
}

func (PaymentSession) TableName() string {
	return "payment_sessions"
}
