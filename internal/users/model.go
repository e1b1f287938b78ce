package users

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls whether a profile appears in the directory.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility value.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Availability values offered on the profile form.
const (
	AvailabilityWeekends = "weekends"
	AvailabilityEvenings = "evenings"
	AvailabilityWeekdays = "weekdays"
	AvailabilityFlexible = "flexible"
)

// ValidAvailability reports whether s is one of the availability values.
func ValidAvailability(s string) bool {
	switch s {
	case AvailabilityWeekends, AvailabilityEvenings, AvailabilityWeekdays, AvailabilityFlexible:
		return true
	}
	return false
}

// User is a SkillSwap account and its public profile.
//
// Rating and RatingsCount are derived from the ratings the user received and
// are only written by the rating aggregation path. RatingSum backs the atomic
// mean update and is never serialised to clients.
type User struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Name              string     `json:"name"`
	Location          string     `json:"location,omitempty"`
	ProfilePhoto      string     `json:"profilePhoto,omitempty"`
	SkillsOffered     []string   `json:"skillsOffered"`
	SkillsWanted      []string   `json:"skillsWanted"`
	Availability      string     `json:"availability"`
	ProfileVisibility Visibility `json:"profileVisibility"`
	Rating            float64    `json:"rating"`
	RatingsCount      int        `json:"ratingsCount"`
	RatingSum         int        `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Summary is the embedded form of a user inside populated records.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfilePhoto string    `json:"profilePhoto,omitempty"`
}

// Summary returns the embedded form of u.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email, ProfilePhoto: u.ProfilePhoto}
}

// ProfileUpdate is a partial profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name              *string     `json:"name"`
	Location          *string     `json:"location"`
	ProfilePhoto      *string     `json:"profilePhoto"`
	SkillsOffered     *[]string   `json:"skillsOffered"`
	SkillsWanted      *[]string   `json:"skillsWanted"`
	Availability      *string     `json:"availability"`
	ProfileVisibility *Visibility `json:"profileVisibility"`
}

// DirectoryQuery selects one page of the public directory.
type DirectoryQuery struct {
	Search string
	Page   int
	Limit  int
}

// Offset returns the number of records to skip for the query's page.
func (q DirectoryQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Pagination describes where a directory page sits in the full result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes page counts for total matching records.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// DirectoryPage is one page of public profiles.
type DirectoryPage struct {
	Users      []*User    `json:"users"`
	Pagination Pagination `json:"pagination"`
}
