package booking

import (
	"strings"
	"time"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/core/common/validation"
)

// BookInterviewRequest asks for an interview slot. Contact fields left empty are taken
// from the application.
type BookInterviewRequest struct {
	FullName      string `json:"full_name,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time"`
	Notes         string `json:"notes,omitempty"`
}

func (r *BookInterviewRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.PreferredDate = strings.TrimSpace(r.PreferredDate)
	r.PreferredTime = strings.ToUpper(strings.TrimSpace(r.PreferredTime))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *BookInterviewRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()

	validator.Field("full_name", r.FullName).MaxLength(200)
	validator.Field("email", r.Email).Email().MaxLength(255)
	validator.Field("phone", r.Phone).MaxLength(20)
	validator.Field("preferred_date", r.PreferredDate).Required().Upcoming()
	validator.Field("preferred_time", r.PreferredTime).Required().OneOf(TimeSlots...)
	validator.Field("notes", r.Notes).MaxLength(1000)

	return validator.Validate()
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (r *UpdateStatusRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()
	validator.Field("status", r.Status).Required().OneOf(string(StatusConfirmed), string(StatusCompleted), string(StatusCancelled))
	return validator.Validate()
}

type BookingResponse struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	VisaType      string    `json:"visa_type"`
	PreferredDate string    `json:"preferred_date"`
	PreferredTime string    `json:"preferred_time"`
	Notes         string    `json:"notes,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (b *Booking) ToResponse() BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		ApplicationID: b.ApplicationID,
		FullName:      b.FullName,
		Email:         b.Email,
		Phone:         b.Phone,
		VisaType:      b.VisaType,
		PreferredDate: b.PreferredDate,
		PreferredTime: b.PreferredTime,
		Notes:         b.Notes,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

func toListResponse(bookings []*Booking) BookingListResponse {
	resp := BookingListResponse{Bookings: make([]BookingResponse, 0, len(bookings))}
	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, b.ToResponse())
	}
	return resp
}
