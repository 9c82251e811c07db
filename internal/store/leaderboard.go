package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/derive"
	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

// Leaderboard derives the ranked student standings from the users
// collection. Rank is computed here on every refresh; stored rank values are
// never trusted.
type Leaderboard struct {
	gw     gateway.Store
	logger *zap.Logger
	now    func() time.Time
	cache  cache[[]models.LeaderboardEntry]
}

func NewLeaderboard(gw gateway.Store, logger *zap.Logger) *Leaderboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Leaderboard{gw: gw, logger: logger, now: time.Now}
}

// Fetch rebuilds the full ranking from the users collection. Only students
// appear; admins hold no points.
func (s *Leaderboard) Fetch(ctx context.Context) ([]models.LeaderboardEntry, error) {
	ticket := s.cache.begin()
	docs, err := s.gw.GetAll(ctx, CollectionUsers)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "fetch leaderboard")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}

	entries := make([]models.LeaderboardEntry, 0, len(docs))
	for _, doc := range docs {
		var user models.User
		if err := doc.Decode(&user); err != nil {
			s.logger.Warn("skipping malformed user", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if user.Role != models.RoleStudent || user.Student == nil {
			continue
		}
		id := user.ID
		if id == "" {
			id = doc.ID
		}
		entries = append(entries, models.LeaderboardEntry{
			ID:                   id,
			StudentID:            id,
			StudentName:          user.Name,
			Avatar:               user.Avatar,
			Points:               user.Student.Points,
			AssignmentsCompleted: user.Student.AssignmentsCompleted,
			Level:                user.Student.Level,
		})
	}
	ranked := derive.Rank(entries)

	if !s.cache.complete(ticket, ranked) {
		current, _ := s.cache.snapshot()
		return current, nil
	}
	return ranked, nil
}

// Snapshot returns the cached ranking and status without touching the
// gateway.
func (s *Leaderboard) Snapshot() ([]models.LeaderboardEntry, Status) {
	return s.cache.snapshot()
}

// UpdateStudentPoints writes absolute points and completed count onto the
// student's user record and rebuilds the whole ranking. Idempotent for equal
// inputs. Partial re-ranking is deliberately not offered; one change can
// shift every rank below it.
func (s *Leaderboard) UpdateStudentPoints(ctx context.Context, studentID string, points, completed int) error {
	doc, err := s.gw.GetByID(ctx, CollectionUsers, studentID)
	if err != nil {
		if err == gateway.ErrNotFound {
			return apperrors.Clone(apperrors.ErrNotFound, "student not found")
		}
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "load student")
	}
	var user models.User
	if err := doc.Decode(&user); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "decode student")
	}
	if user.Role != models.RoleStudent {
		return apperrors.Clone(apperrors.ErrValidation, "user is not a student")
	}
	profile := models.StudentProfile{Level: models.LevelBeginner}
	if user.Student != nil {
		profile = *user.Student
	}
	profile.Points = points
	profile.AssignmentsCompleted = completed

	err = s.gw.UpdateByID(ctx, CollectionUsers, studentID, map[string]interface{}{
		"student":   profile,
		"updatedAt": s.now().UTC(),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "update student points")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("re-rank after points update failed", zap.Error(err))
	}
	return nil
}
