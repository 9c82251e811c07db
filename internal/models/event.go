package models

import "time"

// Event is a scheduled club occurrence owning a set of attendee ids. The
// attendee list carries set semantics: no duplicates, toggle membership.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	Attendees    []string  `json:"attendees"`
	MaxAttendees *int      `json:"maxAttendees,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	CreatedBy    string    `json:"createdBy"`
}
