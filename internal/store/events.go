package store

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/derive"
	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

// EventInput is the mutable surface of an event record.
type EventInput struct {
	Title        string    `json:"title" validate:"required,min=1,max=200"`
	Description  string    `json:"description" validate:"max=2000"`
	Date         time.Time `json:"date" validate:"required"`
	Location     string    `json:"location" validate:"required,max=300"`
	ImageURL     string    `json:"imageUrl" validate:"omitempty,url"`
	MaxAttendees *int      `json:"maxAttendees" validate:"omitempty,gt=0"`
}

// EventUpdate carries a partial edit; nil fields are left unchanged.
type EventUpdate struct {
	Title        *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Date         *time.Time `json:"date,omitempty"`
	Location     *string    `json:"location,omitempty" validate:"omitempty,max=300"`
	ImageURL     *string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
	MaxAttendees *int       `json:"maxAttendees,omitempty" validate:"omitempty,gt=0"`
}

// EventView is an event annotated with the read-time derivations.
type EventView struct {
	models.Event
	IsPast      bool `json:"isPast"`
	IsAttending bool `json:"isAttending"`
}

// Events caches the scheduled event collection and owns attendance toggles.
type Events struct {
	gw       gateway.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	cache    cache[[]models.Event]
}

func NewEvents(gw gateway.Store, validate *validator.Validate, logger *zap.Logger) *Events {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Events{gw: gw, validate: validate, logger: logger, now: time.Now}
}

// Fetch replaces the cache with the remote collection ordered by date.
func (s *Events) Fetch(ctx context.Context) ([]models.Event, error) {
	ticket := s.cache.begin()
	docs, err := s.gw.GetAll(ctx, CollectionEvents)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "fetch events")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}

	events := make([]models.Event, 0, len(docs))
	for _, doc := range docs {
		var event models.Event
		if err := doc.Decode(&event); err != nil {
			s.logger.Warn("skipping malformed event", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if event.ID == "" {
			event.ID = doc.ID
		}
		if event.Attendees == nil {
			event.Attendees = []string{}
		}
		events = append(events, event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.After(events[j].Date)
	})

	if !s.cache.complete(ticket, events) {
		current, _ := s.cache.snapshot()
		return current, nil
	}
	return events, nil
}

// Snapshot returns the cached list and status without touching the gateway.
func (s *Events) Snapshot() ([]models.Event, Status) {
	return s.cache.snapshot()
}

// View annotates cached events with past/attending classification for the
// given user at the current clock. Recomputed per call, never cached.
func (s *Events) View(userID string) ([]EventView, Status) {
	events, status := s.cache.snapshot()
	now := s.now()
	views := make([]EventView, len(events))
	for i, event := range events {
		views[i] = EventView{
			Event:       event,
			IsPast:      derive.IsPast(event, now),
			IsAttending: derive.IsAttending(event, userID),
		}
	}
	return views, status
}

// Add creates an event and refreshes the cache.
func (s *Events) Add(ctx context.Context, createdBy string, input EventInput) (*models.Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid event")
	}
	now := s.now().UTC()
	event := models.Event{
		Title:        input.Title,
		Description:  input.Description,
		Date:         input.Date,
		Location:     input.Location,
		ImageURL:     input.ImageURL,
		Attendees:    []string{},
		MaxAttendees: input.MaxAttendees,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    createdBy,
	}
	id, err := s.gw.Add(ctx, CollectionEvents, event)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "create event")
	}
	event.ID = id
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after add failed", zap.Error(err))
	}
	return &event, nil
}

// Update applies a partial edit and refreshes the cache.
func (s *Events) Update(ctx context.Context, id string, update EventUpdate) error {
	if err := s.validate.Struct(update); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid event update")
	}
	patch := map[string]interface{}{"updatedAt": s.now().UTC()}
	if update.Title != nil {
		patch["title"] = *update.Title
	}
	if update.Description != nil {
		patch["description"] = *update.Description
	}
	if update.Date != nil {
		patch["date"] = *update.Date
	}
	if update.Location != nil {
		patch["location"] = *update.Location
	}
	if update.ImageURL != nil {
		patch["imageUrl"] = *update.ImageURL
	}
	if update.MaxAttendees != nil {
		patch["maxAttendees"] = *update.MaxAttendees
	}
	if err := s.gw.UpdateByID(ctx, CollectionEvents, id, patch); err != nil {
		if err == gateway.ErrNotFound {
			return apperrors.Clone(apperrors.ErrNotFound, "event not found")
		}
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "update event")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after update failed", zap.Error(err))
	}
	return nil
}

// Delete removes an event and refreshes the cache.
func (s *Events) Delete(ctx context.Context, id string) error {
	if err := s.gw.DeleteByID(ctx, CollectionEvents, id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "delete event")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after delete failed", zap.Error(err))
	}
	return nil
}

// Attend toggles the user in the event's attendee set. Attending twice
// restores the original set. A full event blocks joining but never leaving.
func (s *Events) Attend(ctx context.Context, eventID, userID string) (*models.Event, error) {
	doc, err := s.gw.GetByID(ctx, CollectionEvents, eventID)
	if err != nil {
		if err == gateway.ErrNotFound {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "event not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "load event")
	}
	var event models.Event
	if err := doc.Decode(&event); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "decode event")
	}
	if event.ID == "" {
		event.ID = doc.ID
	}

	joining := !derive.IsAttending(event, userID)
	if joining && event.MaxAttendees != nil && len(event.Attendees) >= *event.MaxAttendees {
		return nil, apperrors.Clone(apperrors.ErrConflict, "event is full")
	}

	event.Attendees = derive.ToggleAttendee(event.Attendees, userID)
	event.UpdatedAt = s.now().UTC()
	patch := map[string]interface{}{
		"attendees": event.Attendees,
		"updatedAt": event.UpdatedAt,
	}
	if err := s.gw.UpdateByID(ctx, CollectionEvents, eventID, patch); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "update attendance")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after attend failed", zap.Error(err))
	}
	return &event, nil
}
