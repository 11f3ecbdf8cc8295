package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/pawpulse/internal/domain"
)

// Authenticator turns a bearer credential into an Identity: the identity
// provider vouches for the subject, the profile store supplies role and name.
// The socket handshake and the HTTP API share it.
type Authenticator struct {
	verifier domain.TokenVerifier
	profiles domain.ProfileSource
}

func NewAuthenticator(verifier domain.TokenVerifier, profiles domain.ProfileSource) *Authenticator {
	return &Authenticator{verifier: verifier, profiles: profiles}
}

func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*domain.Identity, error) {
	if credential == "" {
		return nil, domain.ErrMissingCredential
	}

	userID, err := a.verifier.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredential) {
			return nil, err
		}
		return nil, fmt.Errorf("verify credential: %w", err)
	}

	profile, err := a.profiles.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("%w: user %s", domain.ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !profile.Role.Valid() {
		return nil, fmt.Errorf("profile %s has unknown role %q", userID, profile.Role)
	}

	identity := profile.Identity()
	return &identity, nil
}
