package derive

import (
	"time"

	"github.com/isshoni-club/club-api/internal/models"
)

// IsAttending reports whether the user id is in the event's attendee set.
func IsAttending(event models.Event, userID string) bool {
	for _, attendee := range event.Attendees {
		if attendee == userID {
			return true
		}
	}
	return false
}

// ToggleAttendee returns a new attendee set with the user added if absent or
// removed if present. Applying it twice returns the original set. The input
// slice is not modified.
func ToggleAttendee(attendees []string, userID string) []string {
	out := make([]string, 0, len(attendees)+1)
	found := false
	for _, attendee := range attendees {
		if attendee == userID {
			found = true
			continue
		}
		out = append(out, attendee)
	}
	if !found {
		out = append(out, userID)
	}
	return out
}

// IsPast reports whether the event's date is strictly before now. Evaluated
// against the caller's clock at read time; never persisted.
func IsPast(event models.Event, now time.Time) bool {
	return event.Date.Before(now)
}
