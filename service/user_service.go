package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/internal/eth"
	"github.com/geogift/geogift/ports"
)

// UpdateProfileInput carries partial profile updates; nil fields are left
// untouched.
type UpdateProfileInput struct {
	DisplayName        *string `json:"display_name,omitempty"`
	Bio                *string `json:"bio,omitempty"`
	FavoriteLocation   *string `json:"favorite_location,omitempty"`
	ProfilePublic      *bool   `json:"profile_public,omitempty"`
	Email              *string `json:"email,omitempty"`
	EmailNotifications *bool   `json:"email_notifications,omitempty"`
}

// UserService owns wallet profiles.
type UserService struct {
	users ports.UserRepository
	log   zerolog.Logger
	now   func() time.Time
}

// NewUserService creates the user service.
func NewUserService(users ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{
		users: users,
		log:   log.With().Str("component", "users").Logger(),
		now:   time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *UserService) SetNow(now func() time.Time) { s.now = now }

// Get returns the profile owned by the address.
func (s *UserService) Get(ctx context.Context, address string) (*core.User, error) {
	normalized, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return s.users.GetByWallet(ctx, normalized)
}

// GetPublic returns another wallet's profile, hiding private ones.
func (s *UserService) GetPublic(ctx context.Context, address string) (*core.User, error) {
	user, err := s.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	if !user.ProfilePublic {
		return nil, fmt.Errorf("profile is private: %w", core.ErrUserNotFound)
	}
	// Never expose the email on the public surface.
	public := *user
	public.Email = ""
	return &public, nil
}

// Update applies a partial profile update for the authenticated wallet.
func (s *UserService) Update(ctx context.Context, address string, in UpdateProfileInput) (*core.User, error) {
	user, err := s.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.FavoriteLocation != nil {
		user.FavoriteLocation = *in.FavoriteLocation
	}
	if in.ProfilePublic != nil {
		user.ProfilePublic = *in.ProfilePublic
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.EmailNotifications != nil {
		user.EmailNotifications = *in.EmailNotifications
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("wallet", user.WalletAddress).Msg("profile updated")
	return user, nil
}
