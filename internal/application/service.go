package application

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/perejack/globalvisaapplication/internal"
	applicationDatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
)

type RepositoryAPI interface {
	Create(ctx context.Context, app *applicationDatamodel.Application) error
	GetByID(ctx context.Context, id string) (*applicationDatamodel.Application, error)
	ListByUserID(ctx context.Context, userID string) ([]*applicationDatamodel.Application, error)
	MarkActive(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Submit(ctx context.Context, userID string, req *SubmitApplicationRequest) (*Application, error) {
	req.Normalize()
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}

	app, err := NewApplication(userID, req, s.now())
	if err != nil {
		s.logger.Error("failed to issue card number", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to submit application", err)
	}

	if err := s.repo.Create(ctx, ToDataModel(app)); err != nil {
		s.logger.Error("failed to create application", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to submit application", err)
	}

	s.logger.Info("application submitted",
		"application_id", app.ID,
		"user_id", userID,
		"visa_type", app.VisaType)
	return app, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Application, error) {
	rows, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list applications", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to list applications", err)
	}

	apps := make([]*Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, FromDataModel(row))
	}
	return apps, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Application, error) {
	row, err := s.GetOwnedRecord(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.ErrApplicationNotFound
	}
	return FromDataModel(row), nil
}

// GetOwnedRecord returns the stored row if it belongs to userID, otherwise nil.
func (s *Service) GetOwnedRecord(ctx context.Context, userID, id string) (*applicationDatamodel.Application, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load application", "error", err, "application_id", id)
		return nil, errors.NewInternalError("failed to load application", err)
	}
	if row == nil || row.UserID != userID {
		return nil, nil
	}
	return row, nil
}

// Activate marks the card active. Activating an active card is a no-op.
func (s *Service) Activate(ctx context.Context, id string) error {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load application", "error", err, "application_id", id)
		return errors.NewInternalError("failed to activate card", err)
	}
	if row == nil {
		return errors.ErrApplicationNotFound
	}

	app := FromDataModel(row)
	if !app.Activate() {
		s.logger.Debug("card activation skipped", "application_id", id)
		return nil
	}

	changed, err := s.repo.MarkActive(ctx, app.ID)
	if err != nil {
		s.logger.Error("failed to activate application", "error", err, "application_id", id)
		return errors.NewInternalError("failed to activate card", err)
	}

	if changed {
		s.logger.Info("card activated", "application_id", id)
	} else {
		s.logger.Debug("card activated concurrently", "application_id", id)
	}
	return nil
}
