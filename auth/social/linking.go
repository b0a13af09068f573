package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-repository-bun"
)

// UserRepository is the part of the users store the login flow needs.
type UserRepository interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*auth.User, error)
	Create(ctx context.Context, user *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error)
}

// LinkingStrategy maps a provider profile to a fintrack user.
type LinkingStrategy interface {
	ResolveUser(ctx context.Context, lc LinkingContext) (*LinkingResult, error)
}

// LinkingContext is the input of a resolution.
type LinkingContext struct {
	Profile  *Profile
	Accounts AccountRepository
	Users    UserRepository
}

// LinkingResult is the resolved user.
type LinkingResult struct {
	User      *auth.User
	IsNewUser bool
	Linked    bool
}

// DefaultLinkingStrategy resolves by linked account, then by verified email,
// then creates a user when signup is allowed.
type DefaultLinkingStrategy struct {
	AllowSignup          bool
	RequireEmailVerified bool
}

// ResolveUser implements LinkingStrategy.
func (s *DefaultLinkingStrategy) ResolveUser(ctx context.Context, lc LinkingContext) (*LinkingResult, error) {
	profile := lc.Profile
	if profile == nil {
		return nil, ErrUserInfoFailed
	}

	existing, err := lc.Accounts.FindByProviderID(ctx, profile.Provider, profile.ProviderUserID)
	switch {
	case err == nil:
		user, err := lc.Users.GetByIdentifier(ctx, existing.UserID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to find linked user: %w", err)
		}
		return &LinkingResult{User: user}, nil
	case !errors.Is(err, ErrAccountNotFound):
		return nil, fmt.Errorf("failed to find linked account: %w", err)
	}

	if profile.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrUserInfoFailed)
	}
	if s.RequireEmailVerified && !profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	user, err := lc.Users.GetByIdentifier(ctx, profile.Email)
	switch {
	case err == nil:
		return &LinkingResult{User: user, Linked: true}, nil
	case !errors.Is(err, auth.ErrIdentityNotFound):
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if !s.AllowSignup {
		return nil, ErrSignupNotAllowed
	}

	created, err := lc.Users.Create(ctx, userFromProfile(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &LinkingResult{User: created, IsNewUser: true, Linked: true}, nil
}

func userFromProfile(profile *Profile) *auth.User {
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.Split(profile.Email, "@")[0]
	}
	return &auth.User{
		Role:          auth.RoleMember,
		Status:        auth.UserStatusActive,
		Email:         profile.Email,
		EmailVerified: profile.EmailVerified,
		DisplayName:   name,
		PhotoURL:      profile.AvatarURL,
	}
}
