package admin

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/core/common/validation"
)

type StoreAPI interface {
	// Counts tallies applications and bookings; today counts applications created at or after since.
	Counts(ctx context.Context, since time.Time) (*Counts, error)
	ListApplicants(ctx context.Context, filter Filter) ([]*Applicant, error)
}

type Config struct {
	ActivationFee int64
	Currency      string
}

type Service struct {
	store  StoreAPI
	config Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store StoreAPI, config Config, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts, err := s.store.Counts(ctx, midnight)
	if err != nil {
		s.logger.Error("failed to compute dashboard stats", "error", err)
		return nil, errors.NewInternalError("failed to load dashboard stats", err)
	}

	return &Stats{
		Counts:       *counts,
		TotalRevenue: counts.ActiveCards * s.config.ActivationFee,
		Currency:     s.config.Currency,
	}, nil
}

func (s *Service) ListApplicants(ctx context.Context, filter Filter) ([]*Applicant, error) {
	filter.Query = strings.ToLower(strings.TrimSpace(filter.Query))
	if filter.State == "" {
		filter.State = CardStateAll
	}

	validator := validation.NewValidator()
	validator.Field("status", string(filter.State)).OneOf(string(CardStateAll), string(CardStateActive), string(CardStatePending))
	validator.Field("q", filter.Query).MaxLength(100)
	if appErr := validator.Validate(); appErr != nil {
		return nil, appErr
	}

	applicants, err := s.store.ListApplicants(ctx, filter.paged())
	if err != nil {
		s.logger.Error("failed to list applicants", "error", err, "status", filter.State)
		return nil, errors.NewInternalError("failed to list applicants", err)
	}
	return applicants, nil
}
