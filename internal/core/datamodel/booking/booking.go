package booking

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// InterviewBooking is an applicant's requested consular interview slot.
type InterviewBooking struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"`
	UserID        string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	ApplicationID string    `gorm:"column:application_id;type:varchar(36);not null;index"`
	FullName      string    `gorm:"column:full_name;not null"`
	Email         string    `gorm:"column:email;not null"`
	Phone         *string   `gorm:"column:phone"`
	VisaType      string    `gorm:"column:visa_type;not null"`
	PreferredDate string    `gorm:"column:preferred_date;not null"`
	PreferredTime string    `gorm:"column:preferred_time;not null"`
	Notes         *string   `gorm:"column:notes"`
	Status        string    `gorm:"column:status;not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (InterviewBooking) TableName() string {
	return "interview_bookings"
}
