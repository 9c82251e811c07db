package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/models"
)

func newAssignmentsStore(t *testing.T) (*Assignments, *flakyGateway) {
	t.Helper()
	gw := newFlakyGateway()
	return NewAssignments(gw, nil, zap.NewNop()), gw
}

func assignmentInput(title string, due time.Time) AssignmentInput {
	return AssignmentInput{
		Title:     title,
		DueDate:   due,
		MaxPoints: 100,
		Type:      models.SubmissionText,
	}
}

func seedStudent(t *testing.T, gw *flakyGateway, id, name string) {
	t.Helper()
	user := models.NewStudent(id, id+"@example.com", name, time.Now().UTC())
	require.NoError(t, gw.SetByID(context.Background(), CollectionUsers, id, user))
}

func TestAssignmentsSubmitAppendsSubmission(t *testing.T) {
	s, _ := newAssignmentsStore(t)
	ctx := context.Background()

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	sub, err := s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "my answer"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, sub.Status)
	assert.NotEmpty(t, sub.ID)

	assignments, _ := s.Snapshot()
	require.Len(t, assignments, 1)
	require.Len(t, assignments[0].Submissions, 1)
}

func TestAssignmentsSubmitAfterDueDateIsLate(t *testing.T) {
	s, _ := newAssignmentsStore(t)
	ctx := context.Background()

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	sub, err := s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "late answer"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusLate, sub.Status)
}

func TestAssignmentsResubmitReplacesInPlace(t *testing.T) {
	s, _ := newAssignmentsStore(t)
	ctx := context.Background()

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	first, err := s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "draft"})
	require.NoError(t, err)
	second, err := s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "final"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "resubmission keeps the submission id")

	assignments, _ := s.Snapshot()
	require.Len(t, assignments[0].Submissions, 1, "no duplicate per (assignment, student)")
	assert.Equal(t, "final", assignments[0].Submissions[0].Content)
}

func TestAssignmentsResubmitAfterGradingRejected(t *testing.T) {
	s, gw := newAssignmentsStore(t)
	ctx := context.Background()
	seedStudent(t, gw, "stu-1", "Yuki")

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	_, err = s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "answer"})
	require.NoError(t, err)
	_, err = s.Grade(ctx, created.ID, "stu-1", GradeInput{Points: 80})
	require.NoError(t, err)

	_, err = s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "again"})
	assert.Error(t, err)
}

func TestAssignmentsGradeTransition(t *testing.T) {
	s, gw := newAssignmentsStore(t)
	ctx := context.Background()
	seedStudent(t, gw, "stu-1", "Yuki")

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	_, err = s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "answer"})
	require.NoError(t, err)

	graded, err := s.Grade(ctx, created.ID, "stu-1", GradeInput{Points: 85, Feedback: "Good"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusGraded, graded.Status)
	require.NotNil(t, graded.Points)
	assert.Equal(t, 85, *graded.Points)
	assert.Equal(t, "Good", graded.Feedback)
	require.NotNil(t, graded.GradedAt)
}

func TestAssignmentsRegradeOverwritesWithoutDuplicating(t *testing.T) {
	s, gw := newAssignmentsStore(t)
	ctx := context.Background()
	seedStudent(t, gw, "stu-1", "Yuki")

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	_, err = s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "answer"})
	require.NoError(t, err)

	_, err = s.Grade(ctx, created.ID, "stu-1", GradeInput{Points: 85, Feedback: "Good"})
	require.NoError(t, err)
	regraded, err := s.Grade(ctx, created.ID, "stu-1", GradeInput{Points: 90, Feedback: "Better"})
	require.NoError(t, err)

	assert.Equal(t, 90, *regraded.Points)

	assignments, _ := s.Snapshot()
	require.Len(t, assignments[0].Submissions, 1)
}

func TestAssignmentsGradeUpdatesStudentTotals(t *testing.T) {
	s, gw := newAssignmentsStore(t)
	ctx := context.Background()
	seedStudent(t, gw, "stu-1", "Yuki")

	first, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	second, err := s.Add(ctx, "admin-1", assignmentInput("Week 2", time.Now().Add(48*time.Hour)))
	require.NoError(t, err)

	_, err = s.Submit(ctx, first.ID, "stu-1", "Yuki", SubmitInput{Content: "a"})
	require.NoError(t, err)
	_, err = s.Submit(ctx, second.ID, "stu-1", "Yuki", SubmitInput{Content: "b"})
	require.NoError(t, err)

	_, err = s.Grade(ctx, first.ID, "stu-1", GradeInput{Points: 40})
	require.NoError(t, err)
	_, err = s.Grade(ctx, second.ID, "stu-1", GradeInput{Points: 35})
	require.NoError(t, err)

	doc, err := gw.GetByID(ctx, CollectionUsers, "stu-1")
	require.NoError(t, err)
	var user models.User
	require.NoError(t, doc.Decode(&user))
	require.NotNil(t, user.Student)
	assert.Equal(t, 75, user.Student.Points)
	assert.Equal(t, 2, user.Student.AssignmentsCompleted)
}

func TestAssignmentsGradeRejectsPointsOverMax(t *testing.T) {
	s, gw := newAssignmentsStore(t)
	ctx := context.Background()
	seedStudent(t, gw, "stu-1", "Yuki")

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	_, err = s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{Content: "answer"})
	require.NoError(t, err)

	_, err = s.Grade(ctx, created.ID, "stu-1", GradeInput{Points: 150})
	assert.Error(t, err)
}

func TestAssignmentsGradeMissingSubmission(t *testing.T) {
	s, _ := newAssignmentsStore(t)
	ctx := context.Background()

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	_, err = s.Grade(ctx, created.ID, "ghost", GradeInput{Points: 10})
	assert.Error(t, err)
}

func TestAssignmentsSubmitRejectsEmptyPayload(t *testing.T) {
	s, _ := newAssignmentsStore(t)
	ctx := context.Background()

	created, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	_, err = s.Submit(ctx, created.ID, "stu-1", "Yuki", SubmitInput{})
	assert.Error(t, err)
}

func TestAssignmentsPendingDerivation(t *testing.T) {
	s, _ := newAssignmentsStore(t)
	ctx := context.Background()

	a1, err := s.Add(ctx, "admin-1", assignmentInput("A1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	_, err = s.Add(ctx, "admin-1", assignmentInput("A2", time.Now().Add(48*time.Hour)))
	require.NoError(t, err)

	_, err = s.Submit(ctx, a1.ID, "stu-1", "Yuki", SubmitInput{Content: "done"})
	require.NoError(t, err)

	pending, _ := s.Pending("stu-1")
	require.Len(t, pending, 1)
	assert.Equal(t, "A2", pending[0].Title)
}

func TestAssignmentsFetchKeepsStaleDataOnFailure(t *testing.T) {
	s, gw := newAssignmentsStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "admin-1", assignmentInput("Week 1", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	gw.setFailGetAll(true)
	_, err = s.Fetch(ctx)
	require.Error(t, err)

	assignments, status := s.Snapshot()
	assert.Len(t, assignments, 1)
	assert.NotEmpty(t, status.Error)
}
