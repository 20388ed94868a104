package admin

import "time"

type StatsResponse struct {
	TotalApplicants   int64  `json:"total_applicants"`
	ActiveCards       int64  `json:"active_cards"`
	PendingActivation int64  `json:"pending_activation"`
	TotalRevenue      int64  `json:"total_revenue"`
	Currency          string `json:"currency"`
	TodayApplications int64  `json:"today_applications"`
	TotalBookings     int64  `json:"total_bookings"`
	PendingBookings   int64  `json:"pending_bookings"`
	ConfirmedBookings int64  `json:"confirmed_bookings"`
}

func (s *Stats) ToResponse() StatsResponse {
	return StatsResponse{
		TotalApplicants:   s.TotalApplicants,
		ActiveCards:       s.ActiveCards,
		PendingActivation: s.PendingActivation,
		TotalRevenue:      s.TotalRevenue,
		Currency:          s.Currency,
		TodayApplications: s.TodayApplications,
		TotalBookings:     s.TotalBookings,
		PendingBookings:   s.PendingBookings,
		ConfirmedBookings: s.ConfirmedBookings,
	}
}

type ApplicantResponse struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone,omitempty"`
	Nationality string    `json:"nationality"`
	VisaType    string    `json:"visa_type"`
	CardNumber  string    `json:"card_number"`
	Status      CardState `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ApplicantListResponse struct {
	Applicants []ApplicantResponse `json:"applicants"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

func toApplicantList(applicants []*Applicant, filter Filter) ApplicantListResponse {
	resp := ApplicantListResponse{
		Applicants: make([]ApplicantResponse, 0, len(applicants)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	for _, a := range applicants {
		resp.Applicants = append(resp.Applicants, ApplicantResponse{
			ID:          a.ID,
			FullName:    a.FullName(),
			Email:       a.Email,
			Phone:       a.Phone,
			Nationality: a.Nationality,
			VisaType:    a.VisaType,
			CardNumber:  a.CardNumber,
			Status:      a.State(),
			CreatedAt:   a.CreatedAt,
		})
	}
	return resp
}
