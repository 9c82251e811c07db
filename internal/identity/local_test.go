package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	"github.com/isshoni-club/club-api/pkg/config"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

func newProvider(t *testing.T) (*LocalProvider, *gateway.Memory) {
	t.Helper()
	store := gateway.NewMemory()
	provider := NewLocalProvider(store, config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "club-api-test",
	}, zap.NewNop())
	return provider, store
}

func TestSignUpCreatesStudent(t *testing.T) {
	provider, store := newProvider(t)
	ctx := context.Background()

	session, err := provider.SignUp(ctx, "yuki@example.com", "password1", "Yuki", models.RoleStudent)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	assert.Equal(t, models.RoleStudent, session.User.Role)
	require.NotNil(t, session.User.Student)
	assert.Zero(t, session.User.Student.Points)
	assert.Equal(t, models.LevelBeginner, session.User.Student.Level)
	assert.Nil(t, session.User.Admin)
	assert.Empty(t, session.User.PasswordHash)

	docs, err := store.GetAll(ctx, "users")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestSignUpCreatesAdminWithDefaultPermissions(t *testing.T) {
	provider, _ := newProvider(t)

	session, err := provider.SignUp(context.Background(), "sensei@example.com", "password1", "Sensei", models.RoleAdmin)
	require.NoError(t, err)

	require.NotNil(t, session.User.Admin)
	assert.Contains(t, session.User.Admin.Permissions, "manage_assignments")
	assert.Nil(t, session.User.Student)
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	provider, _ := newProvider(t)

	_, err := provider.SignUp(context.Background(), "a@example.com", "short", "A", models.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	provider, _ := newProvider(t)
	ctx := context.Background()

	_, err := provider.SignUp(ctx, "yuki@example.com", "password1", "Yuki", models.RoleStudent)
	require.NoError(t, err)

	_, err = provider.SignUp(ctx, "YUKI@example.com", "password2", "Impostor", models.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrEmailInUse)
}

func TestSignInVerifiesPassword(t *testing.T) {
	provider, _ := newProvider(t)
	ctx := context.Background()

	_, err := provider.SignUp(ctx, "yuki@example.com", "password1", "Yuki", models.RoleStudent)
	require.NoError(t, err)

	session, err := provider.SignIn(ctx, "yuki@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Yuki", session.User.Name)

	_, err = provider.SignIn(ctx, "yuki@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestSignInUnknownEmailLooksLikeBadPassword(t *testing.T) {
	provider, _ := newProvider(t)

	_, err := provider.SignIn(context.Background(), "ghost@example.com", "whatever1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestVerifyRoundTrip(t *testing.T) {
	provider, _ := newProvider(t)
	ctx := context.Background()

	session, err := provider.SignUp(ctx, "yuki@example.com", "password1", "Yuki", models.RoleStudent)
	require.NoError(t, err)

	claims, err := provider.Verify(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	provider, _ := newProvider(t)

	_, err := provider.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	provider, _ := newProvider(t)
	provider.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	session, err := provider.SignUp(context.Background(), "yuki@example.com", "password1", "Yuki", models.RoleStudent)
	require.NoError(t, err)

	provider.now = time.Now
	_, err = provider.Verify(context.Background(), session.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
