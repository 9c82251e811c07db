package models

import "time"

// ContactInfo groups the club's public contact channels.
type ContactInfo struct {
	Email       string      `json:"email"`
	Phone       string      `json:"phone,omitempty"`
	SocialMedia SocialMedia `json:"socialMedia,omitempty"`
}

// SocialMedia lists optional social handles.
type SocialMedia struct {
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

// Officers names the current club board.
type Officers struct {
	President     string `json:"president"`
	VicePresident string `json:"vicePresident"`
	Treasurer     string `json:"treasurer"`
	Secretary     string `json:"secretary"`
}

// ClubInfo is the singleton configuration document, keyed by a fixed id.
// Lazily created with defaults on first read; thereafter partially merged.
type ClubInfo struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Mission         string      `json:"mission"`
	MeetingSchedule string      `json:"meetingSchedule"`
	ContactInfo     ContactInfo `json:"contactInfo"`
	Officers        Officers    `json:"officers"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// ClubInfoID is the fixed document key of the singleton.
const ClubInfoID = "info"

// DefaultClubInfo returns the document created when none exists yet.
func DefaultClubInfo(now time.Time) ClubInfo {
	return ClubInfo{
		ID:              ClubInfoID,
		Name:            "Isshoni Nihongo Club",
		Description:     "A community dedicated to learning Japanese language and culture together.",
		Mission:         "To create an inclusive environment where students can learn Japanese language and culture through collaborative learning, cultural events, and peer support.",
		MeetingSchedule: "Every Friday 3:00 PM - 4:30 PM in Room 201",
		ContactInfo: ContactInfo{
			Email: "isshoni.nihongo@university.edu",
			Phone: "+1 (555) 123-4567",
			SocialMedia: SocialMedia{
				Instagram: "@isshoni_nihongo",
				Facebook:  "Isshoni Nihongo Club",
			},
		},
		Officers: Officers{
			President:     "Yuki Tanaka",
			VicePresident: "Hiroshi Sato",
			Treasurer:     "Aiko Nakamura",
			Secretary:     "Kenji Yamamoto",
		},
		UpdatedAt: now,
	}
}
