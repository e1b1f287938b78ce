package ratings

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one participant's score for the other after a completed swap.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	Swap      uuid.UUID `json:"swap"`
	Rater     uuid.UUID `json:"rater"`
	Ratee     uuid.UUID `json:"ratee"`
	Score     int       `json:"rating"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubmitRequest holds the caller-supplied fields of a new rating.
type SubmitRequest struct {
	SwapID   uuid.UUID
	Ratee    uuid.UUID
	Score    int
	Feedback string
}

// Aggregate is the denormalised rating state stored on a user.
type Aggregate struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"ratingsCount"`
	Sum    int     `json:"ratingSum"`
}

// NewAggregate derives the mean from a sum and count. The mean of no ratings is 0.
func NewAggregate(sum, count int) Aggregate {
	a := Aggregate{Sum: sum, Count: count}
	if count > 0 {
		a.Rating = float64(sum) / float64(count)
	}
	return a
}
