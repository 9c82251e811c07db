package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	"github.com/isshoni-club/club-api/pkg/config"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

const usersCollection = "users"

// Firebase's password policy floor; accounts migrated from there must keep
// signing in.
const minPasswordLength = 6

// LocalProvider stores accounts as user documents with bcrypt password
// hashes and issues HS256 access tokens. Sign-out is a client-side token
// discard; tokens stay valid until expiry.
type LocalProvider struct {
	store  gateway.Store
	cfg    config.JWTConfig
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewLocalProvider(store gateway.Store, cfg config.JWTConfig, logger *zap.Logger) *LocalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalProvider{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := p.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return p.session(*user)
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password, name string, role models.UserRole) (*Session, error) {
	if len(password) < minPasswordLength {
		return nil, apperrors.ErrWeakPassword
	}
	if !role.Valid() {
		return nil, apperrors.Clone(apperrors.ErrValidation, "unknown role")
	}
	existing, err := p.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "hash password")
	}

	now := p.now().UTC()
	var user models.User
	if role == models.RoleAdmin {
		user = models.NewAdmin(p.newID(), normalizeEmail(email), name, now)
	} else {
		user = models.NewStudent(p.newID(), normalizeEmail(email), name, now)
	}
	user.PasswordHash = string(hash)

	if err := p.store.SetByID(ctx, usersCollection, user.ID, user); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "create user")
	}
	p.logger.Info("user signed up",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return p.session(user)
}

func (p *LocalProvider) Verify(_ context.Context, token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(p.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}

func (p *LocalProvider) SignOut(context.Context, string) error {
	return nil
}

func (p *LocalProvider) session(user models.User) (*Session, error) {
	now := p.now().UTC()
	expires := now.Add(p.cfg.Expiration)
	claims := models.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.cfg.Secret))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "sign token")
	}
	return &Session{Token: token, ExpiresAt: expires, User: user.Sanitized()}, nil
}

func (p *LocalProvider) findByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := p.store.GetAll(ctx, usersCollection)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "load users")
	}
	target := normalizeEmail(email)
	for _, doc := range docs {
		var user models.User
		if err := doc.Decode(&user); err != nil {
			p.logger.Warn("skipping malformed user document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if normalizeEmail(user.Email) == target {
			if user.ID == "" {
				user.ID = doc.ID
			}
			return &user, nil
		}
	}
	return nil, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Provider = (*LocalProvider)(nil)
