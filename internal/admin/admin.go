package admin

import "time"

// Counts are the raw tallies the dashboard figures are derived from.
type Counts struct {
	TotalApplicants   int64 `db:"total_applicants"`
	ActiveCards       int64 `db:"active_cards"`
	PendingActivation int64 `db:"pending_activation"`
	TodayApplications int64 `db:"today_applications"`
	TotalBookings     int64 `db:"total_bookings"`
	PendingBookings   int64 `db:"pending_bookings"`
	ConfirmedBookings int64 `db:"confirmed_bookings"`
}

// Stats is the back-office overview. Revenue counts one activation fee per active card.
type Stats struct {
	Counts
	TotalRevenue int64
	Currency     string
}

type CardState string

const (
	CardStateAll     CardState = "all"
	CardStateActive  CardState = "active"
	CardStatePending CardState = "pending"
)

// Filter narrows the applicant list. Query matches names, email, visa type or card number.
type Filter struct {
	Query  string
	State  CardState
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// paged clamps Limit to (0, MaxPageSize] and Offset to zero or more.
func (f Filter) paged() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultPageSize
	case f.Limit > MaxPageSize:
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Applicant is one row of the back-office applicant list.
type Applicant struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	Email       string    `db:"email"`
	Phone       *string   `db:"phone"`
	Nationality string    `db:"nationality"`
	VisaType    string    `db:"visa_type"`
	CardNumber  string    `db:"card_number"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

func (a *Applicant) FullName() string {
	return a.FirstName + " " + a.LastName
}

func (a *Applicant) State() CardState {
	if a.IsActive {
		return CardStateActive
	}
	return CardStatePending
}
