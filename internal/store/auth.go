package store

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/identity"
	"github.com/isshoni-club/club-api/internal/models"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

// SignInInput are the credentials for an existing account.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpInput creates a new account.
type SignUpInput struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Name     string          `json:"name" validate:"required,min=1,max=120"`
	Role     models.UserRole `json:"role" validate:"required,oneof=student admin"`
}

// Auth fronts the identity provider and caches the signed-in user.
type Auth struct {
	provider identity.Provider
	validate *validator.Validate
	logger   *zap.Logger
	cache    cache[*models.User]
}

func NewAuth(provider identity.Provider, validate *validator.Validate, logger *zap.Logger) *Auth {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{provider: provider, validate: validate, logger: logger}
}

// SignIn verifies credentials and caches the resulting identity.
func (s *Auth) SignIn(ctx context.Context, input SignInInput) (*identity.Session, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid credentials payload")
	}
	ticket := s.cache.begin()
	session, err := s.provider.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		s.cache.fail(ticket, err)
		return nil, err
	}
	user := session.User
	s.cache.complete(ticket, &user)
	s.logger.Info("user signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return session, nil
}

// SignUp creates an account and caches the resulting identity.
func (s *Auth) SignUp(ctx context.Context, input SignUpInput) (*identity.Session, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid sign-up payload")
	}
	ticket := s.cache.begin()
	session, err := s.provider.SignUp(ctx, input.Email, input.Password, input.Name, input.Role)
	if err != nil {
		s.cache.fail(ticket, err)
		return nil, err
	}
	user := session.User
	s.cache.complete(ticket, &user)
	return session, nil
}

// SignOut clears the cached identity.
func (s *Auth) SignOut(ctx context.Context, token string) error {
	if err := s.provider.SignOut(ctx, token); err != nil {
		return err
	}
	s.cache.replace(nil)
	return nil
}

// Current returns the cached identity, nil when signed out.
func (s *Auth) Current() (*models.User, Status) {
	return s.cache.snapshot()
}

// Verify delegates token validation to the provider.
func (s *Auth) Verify(ctx context.Context, token string) (*models.JWTClaims, error) {
	return s.provider.Verify(ctx, token)
}
