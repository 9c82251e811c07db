package store

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

// ResourceInput is the mutable surface of a resource record.
type ResourceInput struct {
	Title       string                  `json:"title" validate:"required,min=1,max=200"`
	Description string                  `json:"description" validate:"max=2000"`
	Type        models.ResourceType     `json:"type" validate:"required,oneof=text pdf video link"`
	URL         string                  `json:"url" validate:"omitempty,url"`
	Content     string                  `json:"content"`
	Category    models.ResourceCategory `json:"category" validate:"required,oneof=grammar vocabulary kanji culture general"`
	Level       models.ProficiencyLevel `json:"level" validate:"required,oneof=beginner intermediate advanced"`
}

// ResourceUpdate carries a partial edit; nil fields are left unchanged.
type ResourceUpdate struct {
	Title       *string                  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string                  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Type        *models.ResourceType     `json:"type,omitempty" validate:"omitempty,oneof=text pdf video link"`
	URL         *string                  `json:"url,omitempty" validate:"omitempty,url"`
	Content     *string                  `json:"content,omitempty"`
	Category    *models.ResourceCategory `json:"category,omitempty" validate:"omitempty,oneof=grammar vocabulary kanji culture general"`
	Level       *models.ProficiencyLevel `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// Resources caches the learning material collection.
type Resources struct {
	gw       gateway.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	cache    cache[[]models.Resource]
}

func NewResources(gw gateway.Store, validate *validator.Validate, logger *zap.Logger) *Resources {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resources{gw: gw, validate: validate, logger: logger, now: time.Now}
}

// Fetch replaces the cache with the remote collection, newest first. On
// failure the previous snapshot survives and the error is recorded.
func (s *Resources) Fetch(ctx context.Context) ([]models.Resource, error) {
	ticket := s.cache.begin()
	docs, err := s.gw.GetAll(ctx, CollectionResources)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "fetch resources")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}

	resources := make([]models.Resource, 0, len(docs))
	for _, doc := range docs {
		var resource models.Resource
		if err := doc.Decode(&resource); err != nil {
			s.logger.Warn("skipping malformed resource", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if resource.ID == "" {
			resource.ID = doc.ID
		}
		if resource.Category == "" {
			resource.Category = models.CategoryGeneral
		}
		resources = append(resources, resource)
	}
	sort.SliceStable(resources, func(i, j int) bool {
		return resources[i].CreatedAt.After(resources[j].CreatedAt)
	})

	if !s.cache.complete(ticket, resources) {
		current, _ := s.cache.snapshot()
		return current, nil
	}
	return resources, nil
}

// Snapshot returns the cached list and status without touching the gateway.
func (s *Resources) Snapshot() ([]models.Resource, Status) {
	return s.cache.snapshot()
}

// Add creates a resource and refreshes the cache.
func (s *Resources) Add(ctx context.Context, createdBy string, input ResourceInput) (*models.Resource, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid resource")
	}
	now := s.now().UTC()
	resource := models.Resource{
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		URL:         input.URL,
		Content:     input.Content,
		Category:    input.Category,
		Level:       input.Level,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   createdBy,
	}
	id, err := s.gw.Add(ctx, CollectionResources, resource)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "create resource")
	}
	resource.ID = id
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after add failed", zap.Error(err))
	}
	return &resource, nil
}

// Update applies a partial edit and refreshes the cache.
func (s *Resources) Update(ctx context.Context, id string, update ResourceUpdate) error {
	if err := s.validate.Struct(update); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid resource update")
	}
	patch := map[string]interface{}{"updatedAt": s.now().UTC()}
	if update.Title != nil {
		patch["title"] = *update.Title
	}
	if update.Description != nil {
		patch["description"] = *update.Description
	}
	if update.Type != nil {
		patch["type"] = *update.Type
	}
	if update.URL != nil {
		patch["url"] = *update.URL
	}
	if update.Content != nil {
		patch["content"] = *update.Content
	}
	if update.Category != nil {
		patch["category"] = *update.Category
	}
	if update.Level != nil {
		patch["level"] = *update.Level
	}
	if err := s.gw.UpdateByID(ctx, CollectionResources, id, patch); err != nil {
		if err == gateway.ErrNotFound {
			return apperrors.Clone(apperrors.ErrNotFound, "resource not found")
		}
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "update resource")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after update failed", zap.Error(err))
	}
	return nil
}

// Delete removes a resource and refreshes the cache.
func (s *Resources) Delete(ctx context.Context, id string) error {
	if err := s.gw.DeleteByID(ctx, CollectionResources, id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "delete resource")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after delete failed", zap.Error(err))
	}
	return nil
}
