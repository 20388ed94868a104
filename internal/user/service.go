package user

import (
	"context"
	"fmt"

	apperrors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/application"
)

// ApplicationLister is satisfied by application.Service.
type ApplicationLister interface {
	List(ctx context.Context, userID string) ([]*application.Application, error)
}

type Service struct {
	applications ApplicationLister
}

func NewService(applications ApplicationLister) *Service {
	return &Service{
		applications: applications,
	}
}

// Profile combines the token identity with a count of the caller's cards.
func (s *Service) Profile(ctx context.Context, caller *apperrors.User) (*Profile, error) {
	apps, err := s.applications.List(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	profile := &Profile{
		ID:           caller.ID,
		Email:        caller.Email,
		Role:         caller.Role,
		Applications: len(apps),
	}
	for _, app := range apps {
		if app.IsActive {
			profile.ActiveCards++
		} else {
			profile.PendingCards++
		}
	}
	return profile, nil
}
