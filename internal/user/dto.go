package user

type ProfileResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role,omitempty"`
	Applications int    `json:"applications"`
	ActiveCards  int    `json:"active_cards"`
	PendingCards int    `json:"pending_cards"`
}

func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		ID:           p.ID,
		Email:        p.Email,
		Role:         p.Role,
		Applications: p.Applications,
		ActiveCards:  p.ActiveCards,
		PendingCards: p.PendingCards,
	}
}
