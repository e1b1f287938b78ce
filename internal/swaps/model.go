package swaps

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/users"
)

// Status is the lifecycle state of a swap request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Open reports whether a swap in this status blocks a new request between
// the same requester and receiver.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAccepted
}

// Swap is a request by Requester to trade SkillOffered for Receiver's SkillRequested.
type Swap struct {
	ID             uuid.UUID `json:"id"`
	Requester      uuid.UUID `json:"requester"`
	Receiver       uuid.UUID `json:"receiver"`
	SkillOffered   string    `json:"skillOffered"`
	SkillRequested string    `json:"skillRequested"`
	Status         Status    `json:"status"`
	Message        string    `json:"message,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsParticipant reports whether id is the requester or the receiver.
func (s *Swap) IsParticipant(id uuid.UUID) bool {
	return id == s.Requester || id == s.Receiver
}

// Counterparty returns the other participant, or uuid.Nil when id is not a participant.
func (s *Swap) Counterparty(id uuid.UUID) uuid.UUID {
	switch id {
	case s.Requester:
		return s.Receiver
	case s.Receiver:
		return s.Requester
	}
	return uuid.Nil
}

// Populated is a swap with both participants expanded into summaries.
type Populated struct {
	ID             uuid.UUID     `json:"id"`
	Requester      users.Summary `json:"requester"`
	Receiver       users.Summary `json:"receiver"`
	SkillOffered   string        `json:"skillOffered"`
	SkillRequested string        `json:"skillRequested"`
	Status         Status        `json:"status"`
	Message        string        `json:"message,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Swap returns the unexpanded record.
func (p *Populated) Swap() *Swap {
	return &Swap{
		ID:             p.ID,
		Requester:      p.Requester.ID,
		Receiver:       p.Receiver.ID,
		SkillOffered:   p.SkillOffered,
		SkillRequested: p.SkillRequested,
		Status:         p.Status,
		Message:        p.Message,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// Filter selects which of an actor's swaps List returns.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterSent     Filter = "sent"
	FilterReceived Filter = "received"
)

// ParseFilter maps a query value to a Filter; unknown values mean FilterAll.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterSent:
		return FilterSent
	case FilterReceived:
		return FilterReceived
	}
	return FilterAll
}
