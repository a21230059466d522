package service

import (
	"context"
	"errors"

	"github.com/stockpilot/stockpilot-go/internal/model"
	"github.com/stockpilot/stockpilot-go/internal/repository"
)

var ErrUsernameTaken = errors.New("username already in use")

// ProfileStore is the profile persistence used by ProfileService.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Profile, error)
	UsernameTaken(ctx context.Context, username string, userID int64) (bool, error)
	ApplyPatch(ctx context.Context, userID int64, patch model.ProfilePatch) (*model.Profile, error)
}

// ProfileService manages the caller's advanced profile. Profiles are keyed
// by the authenticated user, so there is no foreign id to check.
type ProfileService struct {
	profiles ProfileStore
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Get returns the caller's profile, or an empty one if none was saved yet.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*model.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return &model.Profile{UserID: userID}, nil
	}
	return p, err
}

// Update changes only the supplied fields, creating the profile on first use.
func (s *ProfileService) Update(ctx context.Context, userID int64, patch model.ProfilePatch) (*model.Profile, error) {
	if err := validateProfilePatch(&patch); err != nil {
		return nil, err
	}

	if patch.Username != nil {
		taken, err := s.profiles.UsernameTaken(ctx, *patch.Username, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	p, err := s.profiles.ApplyPatch(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return p, nil
}
