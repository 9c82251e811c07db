package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/derive"
	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

// AssignmentInput is the mutable surface of an assignment record.
type AssignmentInput struct {
	Title        string                `json:"title" validate:"required,min=1,max=200"`
	Description  string                `json:"description" validate:"max=2000"`
	Instructions string                `json:"instructions" validate:"max=5000"`
	DueDate      time.Time             `json:"dueDate" validate:"required"`
	MaxPoints    int                   `json:"maxPoints" validate:"required,gt=0,lte=1000"`
	Type         models.SubmissionType `json:"type" validate:"required,oneof=text file both"`
}

// AssignmentUpdate carries a partial edit; nil fields are left unchanged.
type AssignmentUpdate struct {
	Title        *string                `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string                `json:"description,omitempty" validate:"omitempty,max=2000"`
	Instructions *string                `json:"instructions,omitempty" validate:"omitempty,max=5000"`
	DueDate      *time.Time             `json:"dueDate,omitempty"`
	MaxPoints    *int                   `json:"maxPoints,omitempty" validate:"omitempty,gt=0,lte=1000"`
	Type         *models.SubmissionType `json:"type,omitempty" validate:"omitempty,oneof=text file both"`
}

// SubmitInput is a student's hand-in for one assignment.
type SubmitInput struct {
	Content  string `json:"content" validate:"max=20000"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName" validate:"max=300"`
}

// GradeInput records an admin's grading decision.
type GradeInput struct {
	Points   int    `json:"points" validate:"gte=0,lte=1000"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

// Assignments caches the assignment collection, including nested
// submissions, and owns the submit and grade mutations.
type Assignments struct {
	gw       gateway.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	cache    cache[[]models.Assignment]
}

func NewAssignments(gw gateway.Store, validate *validator.Validate, logger *zap.Logger) *Assignments {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assignments{
		gw:       gw,
		validate: validate,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Fetch replaces the cache with the remote collection ordered by due date.
func (s *Assignments) Fetch(ctx context.Context) ([]models.Assignment, error) {
	ticket := s.cache.begin()
	docs, err := s.gw.GetAll(ctx, CollectionAssignments)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "fetch assignments")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}

	assignments := make([]models.Assignment, 0, len(docs))
	for _, doc := range docs {
		var assignment models.Assignment
		if err := doc.Decode(&assignment); err != nil {
			s.logger.Warn("skipping malformed assignment", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if assignment.ID == "" {
			assignment.ID = doc.ID
		}
		if assignment.Submissions == nil {
			assignment.Submissions = []models.Submission{}
		}
		assignments = append(assignments, assignment)
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].DueDate.Before(assignments[j].DueDate)
	})

	if !s.cache.complete(ticket, assignments) {
		current, _ := s.cache.snapshot()
		return current, nil
	}
	return assignments, nil
}

// Snapshot returns the cached list and status without touching the gateway.
func (s *Assignments) Snapshot() ([]models.Assignment, Status) {
	return s.cache.snapshot()
}

// Pending lists the cached assignments the student has not submitted for.
// Derived per call from the current snapshot.
func (s *Assignments) Pending(studentID string) ([]models.Assignment, Status) {
	assignments, status := s.cache.snapshot()
	return derive.PendingAssignments(assignments, studentID), status
}

// Add creates an assignment and refreshes the cache.
func (s *Assignments) Add(ctx context.Context, createdBy string, input AssignmentInput) (*models.Assignment, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid assignment")
	}
	now := s.now().UTC()
	assignment := models.Assignment{
		Title:        input.Title,
		Description:  input.Description,
		Instructions: input.Instructions,
		DueDate:      input.DueDate,
		MaxPoints:    input.MaxPoints,
		Type:         input.Type,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    createdBy,
		Submissions:  []models.Submission{},
	}
	id, err := s.gw.Add(ctx, CollectionAssignments, assignment)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "create assignment")
	}
	assignment.ID = id
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after add failed", zap.Error(err))
	}
	return &assignment, nil
}

// Update applies a partial edit and refreshes the cache.
func (s *Assignments) Update(ctx context.Context, id string, update AssignmentUpdate) error {
	if err := s.validate.Struct(update); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid assignment update")
	}
	patch := map[string]interface{}{"updatedAt": s.now().UTC()}
	if update.Title != nil {
		patch["title"] = *update.Title
	}
	if update.Description != nil {
		patch["description"] = *update.Description
	}
	if update.Instructions != nil {
		patch["instructions"] = *update.Instructions
	}
	if update.DueDate != nil {
		patch["dueDate"] = *update.DueDate
	}
	if update.MaxPoints != nil {
		patch["maxPoints"] = *update.MaxPoints
	}
	if update.Type != nil {
		patch["type"] = *update.Type
	}
	if err := s.gw.UpdateByID(ctx, CollectionAssignments, id, patch); err != nil {
		if err == gateway.ErrNotFound {
			return apperrors.Clone(apperrors.ErrNotFound, "assignment not found")
		}
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "update assignment")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after update failed", zap.Error(err))
	}
	return nil
}

// Delete removes an assignment and refreshes the cache.
func (s *Assignments) Delete(ctx context.Context, id string) error {
	if err := s.gw.DeleteByID(ctx, CollectionAssignments, id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "delete assignment")
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after delete failed", zap.Error(err))
	}
	return nil
}

// Submit upserts the student's submission keyed by (assignment, student). A
// pre-grading resubmission replaces the previous one in place; resubmitting
// over a graded submission is rejected. Submissions after the due date are
// marked late.
func (s *Assignments) Submit(ctx context.Context, assignmentID, studentID, studentName string, input SubmitInput) (*models.Submission, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid submission")
	}
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if input.Content == "" && input.FileURL == "" {
		return nil, apperrors.Clone(apperrors.ErrValidation, "submission needs content or a file")
	}

	now := s.now().UTC()
	status := models.StatusSubmitted
	if now.After(assignment.DueDate) {
		status = models.StatusLate
	}
	submission := models.Submission{
		ID:           s.newID(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		StudentName:  studentName,
		Content:      input.Content,
		FileURL:      input.FileURL,
		FileName:     input.FileName,
		SubmittedAt:  now,
		Status:       status,
	}

	replaced := false
	for i, existing := range assignment.Submissions {
		if existing.StudentID != studentID {
			continue
		}
		if existing.Graded() {
			return nil, apperrors.Clone(apperrors.ErrConflict, "submission already graded")
		}
		submission.ID = existing.ID
		assignment.Submissions[i] = submission
		replaced = true
		break
	}
	if !replaced {
		assignment.Submissions = append(assignment.Submissions, submission)
	}

	if err := s.writeSubmissions(ctx, assignmentID, assignment.Submissions); err != nil {
		return nil, err
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after submit failed", zap.Error(err))
	}
	return &submission, nil
}

// Grade records points and feedback on a submission and marks it graded.
// Re-grading overwrites in place. The student's aggregate points and
// completed count are recomputed absolutely from all graded submissions, so
// repeating a grade is a no-op.
func (s *Assignments) Grade(ctx context.Context, assignmentID, studentID string, input GradeInput) (*models.Submission, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid grade")
	}
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if input.Points > assignment.MaxPoints {
		return nil, apperrors.Clone(apperrors.ErrValidation,
			fmt.Sprintf("points exceed assignment maximum of %d", assignment.MaxPoints))
	}

	index := -1
	for i, existing := range assignment.Submissions {
		if existing.StudentID == studentID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "submission not found")
	}

	now := s.now().UTC()
	points := input.Points
	assignment.Submissions[index].Points = &points
	assignment.Submissions[index].Feedback = input.Feedback
	assignment.Submissions[index].GradedAt = &now
	assignment.Submissions[index].Status = models.StatusGraded

	if err := s.writeSubmissions(ctx, assignmentID, assignment.Submissions); err != nil {
		return nil, err
	}
	if err := s.syncStudentTotals(ctx, studentID); err != nil {
		s.logger.Warn("student totals update failed",
			zap.String("student_id", studentID), zap.Error(err))
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Warn("refresh after grade failed", zap.Error(err))
	}
	graded := assignment.Submissions[index]
	return &graded, nil
}

func (s *Assignments) load(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	doc, err := s.gw.GetByID(ctx, CollectionAssignments, assignmentID)
	if err != nil {
		if err == gateway.ErrNotFound {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "assignment not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "load assignment")
	}
	var assignment models.Assignment
	if err := doc.Decode(&assignment); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "decode assignment")
	}
	if assignment.ID == "" {
		assignment.ID = doc.ID
	}
	if assignment.Submissions == nil {
		assignment.Submissions = []models.Submission{}
	}
	return &assignment, nil
}

func (s *Assignments) writeSubmissions(ctx context.Context, assignmentID string, submissions []models.Submission) error {
	patch := map[string]interface{}{
		"submissions": submissions,
		"updatedAt":   s.now().UTC(),
	}
	if err := s.gw.UpdateByID(ctx, CollectionAssignments, assignmentID, patch); err != nil {
		return apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "write submissions")
	}
	return nil
}

// syncStudentTotals recomputes the student's points and completed count from
// every graded submission across all assignments and writes them onto the
// user record. Absolute totals keep grading idempotent.
func (s *Assignments) syncStudentTotals(ctx context.Context, studentID string) error {
	docs, err := s.gw.GetAll(ctx, CollectionAssignments)
	if err != nil {
		return err
	}
	points := 0
	completed := 0
	for _, doc := range docs {
		var assignment models.Assignment
		if err := doc.Decode(&assignment); err != nil {
			continue
		}
		sub, ok := assignment.SubmissionFor(studentID)
		if !ok || !sub.Graded() {
			continue
		}
		completed++
		if sub.Points != nil {
			points += *sub.Points
		}
	}

	userDoc, err := s.gw.GetByID(ctx, CollectionUsers, studentID)
	if err != nil {
		return err
	}
	var user models.User
	if err := userDoc.Decode(&user); err != nil {
		return err
	}
	profile := models.StudentProfile{Level: models.LevelBeginner}
	if user.Student != nil {
		profile = *user.Student
	}
	profile.Points = points
	profile.AssignmentsCompleted = completed

	return s.gw.UpdateByID(ctx, CollectionUsers, studentID, map[string]interface{}{
		"student":   profile,
		"updatedAt": s.now().UTC(),
	})
}
