package store

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

// ClubUpdate carries a partial edit of the singleton club document.
type ClubUpdate struct {
	Name            *string             `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Mission         *string             `json:"mission,omitempty" validate:"omitempty,max=2000"`
	MeetingSchedule *string             `json:"meetingSchedule,omitempty" validate:"omitempty,max=500"`
	ContactInfo     *models.ContactInfo `json:"contactInfo,omitempty"`
	Officers        *models.Officers    `json:"officers,omitempty"`
}

// Club caches the singleton club-info document. The document is created with
// defaults on first read and only ever updated by partial merge after that.
type Club struct {
	gw       gateway.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	cache    cache[models.ClubInfo]
}

func NewClub(gw gateway.Store, validate *validator.Validate, logger *zap.Logger) *Club {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Club{gw: gw, validate: validate, logger: logger, now: time.Now}
}

// Fetch reads the club document, creating it with default content when
// absent. Concurrent first reads both write the same fixed key, so at most
// one record ever exists.
func (s *Club) Fetch(ctx context.Context) (*models.ClubInfo, error) {
	ticket := s.cache.begin()
	doc, err := s.gw.GetByID(ctx, CollectionClub, models.ClubInfoID)
	if err == gateway.ErrNotFound {
		return s.createDefault(ctx, ticket)
	}
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "fetch club info")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}

	var info models.ClubInfo
	if err := doc.Decode(&info); err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "decode club info")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}
	info.ID = models.ClubInfoID

	if !s.cache.complete(ticket, info) {
		current, _ := s.cache.snapshot()
		return &current, nil
	}
	return &info, nil
}

func (s *Club) createDefault(ctx context.Context, ticket uint64) (*models.ClubInfo, error) {
	info := models.DefaultClubInfo(s.now().UTC())
	if err := s.gw.SetByID(ctx, CollectionClub, models.ClubInfoID, info); err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "create club info")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}
	s.logger.Info("club info created with defaults")
	if !s.cache.complete(ticket, info) {
		current, _ := s.cache.snapshot()
		return &current, nil
	}
	return &info, nil
}

// Snapshot returns the cached document and status without touching the
// gateway.
func (s *Club) Snapshot() (models.ClubInfo, Status) {
	return s.cache.snapshot()
}

// Update merges a partial edit into the singleton and refreshes the cache.
func (s *Club) Update(ctx context.Context, update ClubUpdate) error {
	if err := s.validate.Struct(update); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid club update")
	}
	patch := map[string]interface{}{"updatedAt": s.now().UTC()}
	if update.Name != nil {
		patch["name"] = *update.Name
	}
	if update.Description != nil {
		patch["description"] = *update.Description
	}
	if update.Mission != nil {
		patch["mission"] = *update.Mission
	}
	if update.MeetingSchedule != nil {
		patch["meetingSchedule"] = *update.MeetingSchedule
	}
	if update.ContactInfo != nil {
		patch["contactInfo"] = *update.ContactInfo
	}
	if update.Officers != nil {
		patch["officers"] = *update.Officers
	}
	err := s.gw.UpdateByID(ctx, CollectionClub, models.ClubInfoID, patch)
	if err == gateway.ErrNotFound {
		// first write before any read; create defaults then retry the merge
		if _, ferr := s.Fetch(ctx); ferr != nil {
			return ferr
		}
		err = s.gw.UpdateByID(ctx, CollectionClub, models.ClubInfoID, patch)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "update club info")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after update failed", zap.Error(err))
	}
	return nil
}
