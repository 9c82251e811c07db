package models

// LeaderboardEntry is a derived per-student view. Rank is never persisted; it
// is recomputed from points on every snapshot.
type LeaderboardEntry struct {
	ID                   string           `json:"id"`
	StudentID            string           `json:"studentId"`
	StudentName          string           `json:"studentName"`
	Avatar               string           `json:"avatar,omitempty"`
	Points               int              `json:"points"`
	AssignmentsCompleted int              `json:"assignmentsCompleted"`
	Level                ProficiencyLevel `json:"level"`
	Rank                 int              `json:"rank"`
}
