package application

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	applicationDatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
)

const (
	cardNumberDigits = 16
	cardValidity     = 5
	expiryLayout     = "01/06"
)

type Application struct {
	ID             string
	UserID         string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    string
	Nationality    string
	VisaType       string
	PurposeOfVisit string
	CardNumber     string
	ExpiryDate     string
	IssueDate      string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *Application) FullName() string {
	return a.FirstName + " " + a.LastName
}

func (a *Application) Activate() bool {
	if a.IsActive {
		return false
	}
	a.IsActive = true
	a.UpdatedAt = time.Now()
	return true
}

// NewApplication issues an inactive card valid for five years from issuedAt.
func NewApplication(userID string, req *SubmitApplicationRequest, issuedAt time.Time) (*Application, error) {
	cardNumber, err := GenerateCardNumber()
	if err != nil {
		return nil, err
	}

	return &Application{
		ID:             uuid.NewString(),
		UserID:         userID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		DateOfBirth:    req.DateOfBirth,
		Nationality:    req.Nationality,
		VisaType:       req.VisaType,
		PurposeOfVisit: req.PurposeOfVisit,
		CardNumber:     cardNumber,
		IssueDate:      issuedAt.Format(time.DateOnly),
		ExpiryDate:     issuedAt.AddDate(cardValidity, 0, 0).Format(expiryLayout),
		IsActive:       false,
		CreatedAt:      issuedAt,
		UpdatedAt:      issuedAt,
	}, nil
}

func GenerateCardNumber() (string, error) {
	digits := make([]byte, cardNumberDigits)
	ten := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate card number: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func ToDataModel(a *Application) *applicationDatamodel.Application {
	return &applicationDatamodel.Application{
		ID:             a.ID,
		UserID:         a.UserID,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		Phone:          optional(a.Phone),
		DateOfBirth:    a.DateOfBirth,
		Nationality:    a.Nationality,
		VisaType:       a.VisaType,
		PurposeOfVisit: optional(a.PurposeOfVisit),
		CardNumber:     a.CardNumber,
		ExpiryDate:     a.ExpiryDate,
		IssueDate:      a.IssueDate,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func FromDataModel(a *applicationDatamodel.Application) *Application {
	return &Application{
		ID:             a.ID,
		UserID:         a.UserID,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		Phone:          deref(a.Phone),
		DateOfBirth:    a.DateOfBirth,
		Nationality:    a.Nationality,
		VisaType:       a.VisaType,
		PurposeOfVisit: deref(a.PurposeOfVisit),
		CardNumber:     a.CardNumber,
		ExpiryDate:     a.ExpiryDate,
		IssueDate:      a.IssueDate,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
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
