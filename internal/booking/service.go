package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/core/common/validation"
	applicationDatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
	bookingDatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/booking"
)

type RepositoryAPI interface {
	Create(ctx context.Context, booking *bookingDatamodel.InterviewBooking) error
	GetByID(ctx context.Context, id string) (*bookingDatamodel.InterviewBooking, error)
	ListByApplicationID(ctx context.Context, applicationID string) ([]*bookingDatamodel.InterviewBooking, error)
	// List returns every booking, or only those in status when it is not empty.
	List(ctx context.Context, status string) ([]*bookingDatamodel.InterviewBooking, error)
	// UpdateStatus moves a booking to status only while it is still in one of from.
	UpdateStatus(ctx context.Context, id string, from []string, status string) (bool, error)
}

// ApplicationProvider resolves an application owned by the caller; nil means not found.
type ApplicationProvider interface {
	GetOwnedRecord(ctx context.Context, userID, applicationID string) (*applicationDatamodel.Application, error)
}

type Service struct {
	repo         RepositoryAPI
	applications ApplicationProvider
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(repo RepositoryAPI, applications ApplicationProvider, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		applications: applications,
		logger:       logger,
		now:          time.Now,
	}
}

// Book records a pending interview request for one of the caller's applications.
func (s *Service) Book(ctx context.Context, userID, applicationID string, req *BookInterviewRequest) (*Booking, error) {
	app, err := s.applications.GetOwnedRecord(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, errors.ErrApplicationNotFound
	}

	req.Normalize()
	if req.FullName == "" {
		req.FullName = app.FirstName + " " + app.LastName
	}
	if req.Email == "" {
		req.Email = app.Email
	}
	if req.Phone == "" && app.Phone != nil {
		req.Phone = *app.Phone
	}
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}

	booking := NewBooking(userID, app.ID, app.VisaType, req, s.now())
	if err := s.repo.Create(ctx, ToDataModel(booking)); err != nil {
		s.logger.Error("failed to create interview booking", "error", err, "application_id", app.ID)
		return nil, errors.NewInternalError("failed to book interview", err)
	}

	s.logger.Info("interview booked",
		"booking_id", booking.ID,
		"application_id", app.ID,
		"preferred_date", booking.PreferredDate,
		"preferred_time", booking.PreferredTime)
	return booking, nil
}

func (s *Service) ListForApplication(ctx context.Context, userID, applicationID string) ([]*Booking, error) {
	app, err := s.applications.GetOwnedRecord(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, errors.ErrApplicationNotFound
	}

	rows, err := s.repo.ListByApplicationID(ctx, app.ID)
	if err != nil {
		s.logger.Error("failed to list interview bookings", "error", err, "application_id", app.ID)
		return nil, errors.NewInternalError("failed to list interview bookings", err)
	}
	return fromRows(rows), nil
}

// List is the back-office view of all bookings, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status string) ([]*Booking, error) {
	if status != "" {
		validator := validation.NewValidator()
		validator.Field("status", status).OneOf(string(StatusPending), string(StatusConfirmed), string(StatusCompleted), string(StatusCancelled))
		if appErr := validator.Validate(); appErr != nil {
			return nil, appErr
		}
	}

	rows, err := s.repo.List(ctx, status)
	if err != nil {
		s.logger.Error("failed to list interview bookings", "error", err, "status", status)
		return nil, errors.NewInternalError("failed to list interview bookings", err)
	}
	return fromRows(rows), nil
}

// UpdateStatus confirms, completes or cancels a booking. Completed and cancelled
// bookings are final.
func (s *Service) UpdateStatus(ctx context.Context, id string, req *UpdateStatusRequest) (*Booking, error) {
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load interview booking", "error", err, "booking_id", id)
		return nil, errors.NewInternalError("failed to load interview booking", err)
	}
	if row == nil {
		return nil, errors.ErrBookingNotFound
	}

	booking := FromDataModel(row)
	next := Status(req.Status)
	if !booking.CanMoveTo(next) {
		return nil, invalidTransition(booking.Status, next)
	}

	changed, err := s.repo.UpdateStatus(ctx, id, []string{string(booking.Status)}, string(next))
	if err != nil {
		s.logger.Error("failed to update interview booking", "error", err, "booking_id", id)
		return nil, errors.NewInternalError("failed to update interview booking", err)
	}
	if !changed {
		return nil, errors.NewConflictError("The booking was changed by someone else. Reload and try again.", errors.ErrCodeBookingInvalidTransition)
	}

	s.logger.Info("interview booking updated",
		"booking_id", id,
		"from", booking.Status,
		"to", next)

	booking.Status = next
	booking.UpdatedAt = s.now()
	return booking, nil
}

func invalidTransition(from, to Status) *errors.AppError {
	return errors.NewConflictError(fmt.Sprintf("A %s booking cannot be marked %s", from, to), errors.ErrCodeBookingInvalidTransition)
}

func fromRows(rows []*bookingDatamodel.InterviewBooking) []*Booking {
	bookings := make([]*Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, FromDataModel(row))
	}
	return bookings
}
