package derive

import "github.com/isshoni-club/club-api/internal/models"

// PendingAssignments returns the assignments the student has not submitted
// for, preserving input order. An assignment counts as submitted as soon as
// any submission carries the student's id, regardless of grading status.
func PendingAssignments(assignments []models.Assignment, studentID string) []models.Assignment {
	pending := make([]models.Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		if _, ok := assignment.SubmissionFor(studentID); !ok {
			pending = append(pending, assignment)
		}
	}
	return pending
}

// CompletedCount returns how many assignments carry a graded submission for
// the student.
func CompletedCount(assignments []models.Assignment, studentID string) int {
	count := 0
	for _, assignment := range assignments {
		if sub, ok := assignment.SubmissionFor(studentID); ok && sub.Graded() {
			count++
		}
	}
	return count
}
