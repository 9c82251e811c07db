package models

import "time"

// SubmissionType constrains what a student may hand in.
type SubmissionType string

const (
	SubmissionText SubmissionType = "text"
	SubmissionFile SubmissionType = "file"
	SubmissionBoth SubmissionType = "both"
)

// SubmissionStatus tracks the grading lifecycle of a submission.
type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusGraded    SubmissionStatus = "graded"
	StatusLate      SubmissionStatus = "late"
)

// Submission is one student's answer to an assignment. At most one per
// (assignment, student) pair; immutable once graded except via an explicit
// re-grade.
type Submission struct {
	ID           string           `json:"id"`
	AssignmentID string           `json:"assignmentId"`
	StudentID    string           `json:"studentId"`
	StudentName  string           `json:"studentName"`
	Content      string           `json:"content,omitempty"`
	FileURL      string           `json:"fileUrl,omitempty"`
	FileName     string           `json:"fileName,omitempty"`
	SubmittedAt  time.Time        `json:"submittedAt"`
	GradedAt     *time.Time       `json:"gradedAt,omitempty"`
	Points       *int             `json:"points,omitempty"`
	Feedback     string           `json:"feedback,omitempty"`
	Status       SubmissionStatus `json:"status"`
}

// Graded reports whether the submission has been graded.
func (s Submission) Graded() bool {
	return s.Status == StatusGraded
}

// Assignment is a task definition owning its submissions as a nested list,
// matching the persisted document layout.
type Assignment struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Instructions string         `json:"instructions"`
	DueDate      time.Time      `json:"dueDate"`
	MaxPoints    int            `json:"maxPoints"`
	Type         SubmissionType `json:"type"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	CreatedBy    string         `json:"createdBy"`
	Submissions  []Submission   `json:"submissions"`
}

// SubmissionFor returns the student's submission, if any.
func (a Assignment) SubmissionFor(studentID string) (Submission, bool) {
	for _, sub := range a.Submissions {
		if sub.StudentID == studentID {
			return sub, true
		}
	}
	return Submission{}, false
}
