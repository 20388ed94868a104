package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/perejack/globalvisaapplication/internal/booking"
	bookingDatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/booking"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) booking.RepositoryAPI {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *bookingDatamodel.InterviewBooking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*bookingDatamodel.InterviewBooking, error) {
	var b bookingDatamodel.InterviewBooking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) ListByApplicationID(ctx context.Context, applicationID string) ([]*bookingDatamodel.InterviewBooking, error) {
	var bookings []*bookingDatamodel.InterviewBooking
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) List(ctx context.Context, status string) ([]*bookingDatamodel.InterviewBooking, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var bookings []*bookingDatamodel.InterviewBooking
	err := query.Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from []string, status string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&bookingDatamodel.InterviewBooking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
