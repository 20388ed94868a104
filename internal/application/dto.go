package application

import (
	"strings"
	"time"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/core/common/validation"
)

type SubmitApplicationRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	DateOfBirth    string `json:"date_of_birth"`
	Nationality    string `json:"nationality"`
	VisaType       string `json:"visa_type"`
	PurposeOfVisit string `json:"purpose_of_visit,omitempty"`
}

func (r *SubmitApplicationRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Nationality = strings.TrimSpace(r.Nationality)
	r.VisaType = strings.TrimSpace(r.VisaType)
	r.PurposeOfVisit = strings.TrimSpace(r.PurposeOfVisit)
}

func (r *SubmitApplicationRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()

	validator.Field("first_name", r.FirstName).Required().MaxLength(100)
	validator.Field("last_name", r.LastName).Required().MaxLength(100)
	validator.Field("email", r.Email).Required().Email().MaxLength(255)
	validator.Field("phone", r.Phone).MaxLength(20)
	validator.Field("date_of_birth", r.DateOfBirth).Required().Date()
	validator.Field("nationality", r.Nationality).Required().MaxLength(100)
	validator.Field("visa_type", r.VisaType).Required().MaxLength(100)
	validator.Field("purpose_of_visit", r.PurposeOfVisit).MaxLength(1000)

	return validator.Validate()
}

type ApplicationResponse struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	DateOfBirth    string    `json:"date_of_birth"`
	Nationality    string    `json:"nationality"`
	VisaType       string    `json:"visa_type"`
	PurposeOfVisit string    `json:"purpose_of_visit,omitempty"`
	CardNumber     string    `json:"card_number"`
	ExpiryDate     string    `json:"expiry_date"`
	IssueDate      string    `json:"issue_date"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (a *Application) ToResponse() ApplicationResponse {
	return ApplicationResponse{
		ID:             a.ID,
		FullName:       a.FullName(),
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		Phone:          a.Phone,
		DateOfBirth:    a.DateOfBirth,
		Nationality:    a.Nationality,
		VisaType:       a.VisaType,
		PurposeOfVisit: a.PurposeOfVisit,
		CardNumber:     a.CardNumber,
		ExpiryDate:     a.ExpiryDate,
		IssueDate:      a.IssueDate,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type ApplicationListResponse struct {
	Applications []ApplicationResponse `json:"applications"`
}
