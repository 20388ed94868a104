package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	paymentdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/payment"
	"github.com/perejack/globalvisaapplication/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) payment.RepositoryAPI {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, session *paymentdatamodel.PaymentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

var terminalStatuses = []string{paymentdatamodel.StatusSuccess, paymentdatamodel.StatusFailed, paymentdatamodel.StatusTimeout}

// Update writes every column of session unless the stored row is already terminal or
// gone, in which case it returns payment.ErrSessionClosed and leaves the row alone.
func (r *PaymentRepository) Update(ctx context.Context, session *paymentdatamodel.PaymentSession) error {
	result := r.db.WithContext(ctx).
		Model(session).
		Where("status NOT IN ?", terminalStatuses).
		Select("*").
		Omit("created_at").
		Updates(session)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return payment.ErrSessionClosed
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*paymentdatamodel.PaymentSession, error) {
	var session paymentdatamodel.PaymentSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *PaymentRepository) ListByApplicationID(ctx context.Context, applicationID string) ([]*paymentdatamodel.PaymentSession, error) {
	var sessions []*paymentdatamodel.PaymentSession
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// ListUnfinished returns sessions that never reached a terminal status, oldest first.
func (r *PaymentRepository) ListUnfinished(ctx context.Context) ([]*paymentdatamodel.PaymentSession, error) {
	var sessions []*paymentdatamodel.PaymentSession
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", terminalStatuses).
		Order("created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// FindByCheckoutID returns every session created for one checkout request, oldest first.
func (r *PaymentRepository) FindByCheckoutID(ctx context.Context, checkoutID string) ([]*paymentdatamodel.PaymentSession, error) {
	var sessions []*paymentdatamodel.PaymentSession
	err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("created_at ASC").
		Find(&sessions).Error
	return sessions, err
}
