package client

import "time"

// Swap statuses.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// SignupResult is returned by Signup.
type SignupResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// User is a member profile as the API returns it.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Location          string    `json:"location,omitempty"`
	ProfilePhoto      string    `json:"profilePhoto,omitempty"`
	SkillsOffered     []string  `json:"skillsOffered"`
	SkillsWanted      []string  `json:"skillsWanted"`
	Availability      string    `json:"availability"`
	ProfileVisibility string    `json:"profileVisibility"`
	Rating            float64   `json:"rating"`
	RatingsCount      int       `json:"ratingsCount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UserSummary is the participant form embedded in swaps.
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

// ProfileUpdate is a partial profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name              *string   `json:"name,omitempty"`
	Location          *string   `json:"location,omitempty"`
	ProfilePhoto      *string   `json:"profilePhoto,omitempty"`
	SkillsOffered     *[]string `json:"skillsOffered,omitempty"`
	SkillsWanted      *[]string `json:"skillsWanted,omitempty"`
	Availability      *string   `json:"availability,omitempty"`
	ProfileVisibility *string   `json:"profileVisibility,omitempty"`
}

// Pagination describes a directory page.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// DirectoryPage is one page of public profiles.
type DirectoryPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// CreateSwapRequest is the payload for CreateSwap.
type CreateSwapRequest struct {
	Receiver       string `json:"receiver"`
	SkillOffered   string `json:"skillOffered"`
	SkillRequested string `json:"skillRequested"`
	Message        string `json:"message,omitempty"`
}

// Swap is a swap request with both participants expanded.
type Swap struct {
	ID             string      `json:"id"`
	Requester      UserSummary `json:"requester"`
	Receiver       UserSummary `json:"receiver"`
	SkillOffered   string      `json:"skillOffered"`
	SkillRequested string      `json:"skillRequested"`
	Status         string      `json:"status"`
	Message        string      `json:"message,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// RateRequest is the payload for Rate.
type RateRequest struct {
	SwapID   string `json:"swapId"`
	Ratee    string `json:"ratee"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

// Rating is one participant's score for the other.
type Rating struct {
	ID        string    `json:"id"`
	Swap      string    `json:"swap"`
	Rater     string    `json:"rater"`
	Ratee     string    `json:"ratee"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Aggregate is a user's rating state after a submission.
type Aggregate struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"ratingsCount"`
}
