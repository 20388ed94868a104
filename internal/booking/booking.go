package booking

import (
	"time"

	"github.com/google/uuid"

	bookingDatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/booking"
)

type Status string

const (
	StatusPending   Status = bookingDatamodel.StatusPending
	StatusConfirmed Status = bookingDatamodel.StatusConfirmed
	StatusCompleted Status = bookingDatamodel.StatusCompleted
	StatusCancelled Status = bookingDatamodel.StatusCancelled
)

// TimeSlots are the interview times offered on any working day.
var TimeSlots = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM",
	"11:00 AM", "11:30 AM", "12:00 PM", "12:30 PM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM",
	"04:00 PM", "04:30 PM",
}

// allowedFrom lists the statuses a booking may move to from each status.
var allowedFrom = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

type Booking struct {
	ID            string
	UserID        string
	ApplicationID string
	FullName      string
	Email         string
	Phone         string
	VisaType      string
	PreferredDate string
	PreferredTime string
	Notes         string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewBooking(userID, applicationID, visaType string, req *BookInterviewRequest, now time.Time) *Booking {
	return &Booking{
		ID:            uuid.NewString(),
		UserID:        userID,
		ApplicationID: applicationID,
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		VisaType:      visaType,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Notes:         req.Notes,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanMoveTo reports whether the booking may go from its current status to next.
func (b *Booking) CanMoveTo(next Status) bool {
	for _, s := range allowedFrom[b.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// SourcesOf returns the statuses from which a booking may reach next.
func SourcesOf(next Status) []string {
	var from []string
	for src, targets := range allowedFrom {
		for _, t := range targets {
			if t == next {
				from = append(from, string(src))
			}
		}
	}
	return from
}

func ToDataModel(b *Booking) *bookingDatamodel.InterviewBooking {
	return &bookingDatamodel.InterviewBooking{
		ID:            b.ID,
		UserID:        b.UserID,
		ApplicationID: b.ApplicationID,
		FullName:      b.FullName,
		Email:         b.Email,
		Phone:         optional(b.Phone),
		VisaType:      b.VisaType,
		PreferredDate: b.PreferredDate,
		PreferredTime: b.PreferredTime,
		Notes:         optional(b.Notes),
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func FromDataModel(row *bookingDatamodel.InterviewBooking) *Booking {
	return &Booking{
		ID:            row.ID,
		UserID:        row.UserID,
		ApplicationID: row.ApplicationID,
		FullName:      row.FullName,
		Email:         row.Email,
		Phone:         deref(row.Phone),
		VisaType:      row.VisaType,
		PreferredDate: row.PreferredDate,
		PreferredTime: row.PreferredTime,
		Notes:         deref(row.Notes),
		Status:        Status(row.Status),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
