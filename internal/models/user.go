package models

import "time"

// UserRole distinguishes the two member kinds the club app knows about.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// ProficiencyLevel grades a student's language level.
type ProficiencyLevel string

const (
	LevelBeginner     ProficiencyLevel = "beginner"
	LevelIntermediate ProficiencyLevel = "intermediate"
	LevelAdvanced     ProficiencyLevel = "advanced"
)

// StudentProfile holds the student-only aggregate fields. Points and the
// completed counter are mutated by grading side effects; level by promotion.
type StudentProfile struct {
	Points               int              `json:"points"`
	AssignmentsCompleted int              `json:"assignmentsCompleted"`
	Level                ProficiencyLevel `json:"level"`
}

// AdminProfile holds the admin-only permission set.
type AdminProfile struct {
	Permissions []string `json:"permissions"`
}

// User is a member identity. Exactly one of Student/Admin is set, selected by
// Role at construction and never switched afterwards.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Student *StudentProfile `json:"student,omitempty"`
	Admin   *AdminProfile   `json:"admin,omitempty"`
}

// NewStudent constructs a student identity with zeroed aggregates.
func NewStudent(id, email, name string, now time.Time) User {
	return User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
		Student:   &StudentProfile{Level: LevelBeginner},
	}
}

// NewAdmin constructs an admin identity with the default permission set.
func NewAdmin(id, email, name string, now time.Time) User {
	return User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
		Admin: &AdminProfile{
			Permissions: []string{"manage_assignments", "manage_resources", "manage_events"},
		},
	}
}

// Sanitized returns a copy safe for API responses.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
