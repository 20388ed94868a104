package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/perejack/globalvisaapplication/internal/admin"
)

const applicationCountsQuery = `
SELECT
  COUNT(*) AS total_applicants,
  COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active_cards,
  COALESCE(SUM(CASE WHEN is_active THEN 0 ELSE 1 END), 0) AS pending_activation,
  COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS today_applications
FROM applications
`

const bookingCountsQuery = `
SELECT
  COUNT(*) AS total_bookings,
  COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending_bookings,
  COALESCE(SUM(CASE WHEN status = 'confirmed' THEN 1 ELSE 0 END), 0) AS confirmed_bookings
FROM interview_bookings
`

const applicantColumns = `id, user_id, first_name, last_name, email, phone, nationality, visa_type, card_number, is_active, created_at`

// Store reads the back-office views straight from the portal tables.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) admin.StoreAPI {
	return &Store{db: db}
}

func (s *Store) Counts(ctx context.Context, since time.Time) (*admin.Counts, error) {
	var counts admin.Counts
	if err := s.db.GetContext(ctx, &counts, s.db.Rebind(applicationCountsQuery), since); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	if err := s.db.GetContext(ctx, &counts, bookingCountsQuery); err != nil {
		return nil, fmt.Errorf("count interview bookings: %w", err)
	}
	return &counts, nil
}

func (s *Store) ListApplicants(ctx context.Context, filter admin.Filter) ([]*admin.Applicant, error) {
	var (
		where []string
		args  []interface{}
	)

	switch filter.State {
	case admin.CardStateActive:
		where = append(where, "is_active = ?")
		args = append(args, true)
	case admin.CardStatePending:
		where = append(where, "is_active = ?")
		args = append(args, false)
	}

	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		where = append(where, `(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(visa_type) LIKE ? OR card_number LIKE ?)`)
		args = append(args, like, like, like, like, like)
	}

	query := "SELECT " + applicantColumns + " FROM applications"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	applicants := []*admin.Applicant{}
	if err := s.db.SelectContext(ctx, &applicants, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	return applicants, nil
}
