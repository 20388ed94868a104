package user

// Profile is the signed-in applicant as the portal dashboard shows them.
type Profile struct {
	ID           string
	Email        string
	Role         string
	Applications int
	ActiveCards  int
	PendingCards int
}
