// Package identity provides the auth collaborator: credential verification,
// account creation, and access-token handling over the users collection.
package identity

import (
	"context"
	"time"

	"github.com/isshoni-club/club-api/internal/models"
)

// Session is the result of a successful sign-in or sign-up.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Provider authenticates members. The returned user's role decides which
// operation surface the caller is allowed to use.
type Provider interface {
	// SignIn verifies credentials. Fails with ErrInvalidCredentials for both
	// unknown emails and wrong passwords; callers cannot probe for accounts.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignUp creates an account with the given role and signs it in. Fails
	// with ErrEmailInUse or ErrWeakPassword.
	SignUp(ctx context.Context, email, password, name string, role models.UserRole) (*Session, error)

	// Verify parses and validates an access token.
	Verify(ctx context.Context, token string) (*models.JWTClaims, error)

	// SignOut invalidates the session where the provider supports it.
	SignOut(ctx context.Context, token string) error
}
