package application

import "time"

// Application is a submitted visa application together with the card issued for it.
// Dates are kept as the strings shown on the card.
type Application struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	FirstName      string    `gorm:"column:first_name;not null"`
	LastName       string    `gorm:"column:last_name;not null"`
	Email          string    `gorm:"column:email;not null"`
	Phone          *string   `gorm:"column:phone"`
	DateOfBirth    string    `gorm:"column:date_of_birth;not null"`
	Nationality    string    `gorm:"column:nationality;not null"`
	VisaType       string    `gorm:"column:visa_type;not null"`
	PurposeOfVisit *string   `gorm:"column:purpose_of_visit"`
	CardNumber     string    `gorm:"column:card_number;uniqueIndex;not null"`
	ExpiryDate     string    `gorm:"column:expiry_date;not null"`
	IssueDate      string    `gorm:"column:issue_date;not null"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (Application) TableName() string {
	return "applications"
}
