// Package seed loads development fixtures through the domain services, so
// passwords are hashed, swaps walk the real lifecycle and rating aggregates
// are maintained the same way as in production.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
	"github.com/jmerrifield20/skillswap/internal/ratings"
	"github.com/jmerrifield20/skillswap/internal/swaps"
	"github.com/jmerrifield20/skillswap/internal/users"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the YAML document consumed by Run.
type Fixtures struct {
	Users   []UserFixture   `yaml:"users"`
	Swaps   []SwapFixture   `yaml:"swaps"`
	Ratings []RatingFixture `yaml:"ratings"`
}

// UserFixture describes one account and its profile.
type UserFixture struct {
	Email         string   `yaml:"email"`
	Password      string   `yaml:"password"`
	Name          string   `yaml:"name"`
	Location      string   `yaml:"location"`
	ProfilePhoto  string   `yaml:"profilePhoto"`
	SkillsOffered []string `yaml:"skillsOffered"`
	SkillsWanted  []string `yaml:"skillsWanted"`
	Availability  string   `yaml:"availability"`
	Private       bool     `yaml:"private"`
}

// SwapFixture describes a swap and the status it should end in. Participants
// are referenced by email; Key names the swap for rating fixtures.
type SwapFixture struct {
	Key            string       `yaml:"key"`
	Requester      string       `yaml:"requester"`
	Receiver       string       `yaml:"receiver"`
	SkillOffered   string       `yaml:"skillOffered"`
	SkillRequested string       `yaml:"skillRequested"`
	Status         swaps.Status `yaml:"status"`
	Message        string       `yaml:"message"`
}

// RatingFixture rates the other participant of a completed swap fixture.
type RatingFixture struct {
	Swap     string `yaml:"swap"`
	Rater    string `yaml:"rater"`
	Rating   int    `yaml:"rating"`
	Feedback string `yaml:"feedback"`
}

// Default returns the built-in fixtures.
func Default() (*Fixtures, error) {
	return Parse(defaultFixtures)
}

// Parse decodes a fixtures document.
func Parse(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fx, nil
}

type accountSvc interface {
	Register(ctx context.Context, email, password, name string) (*users.User, error)
	UpdateProfile(ctx context.Context, actor, id uuid.UUID, upd users.ProfileUpdate) (*users.User, error)
}

type swapSvc interface {
	Create(ctx context.Context, requester uuid.UUID, req swaps.CreateRequest) (*swaps.Populated, error)
	Transition(ctx context.Context, id, actor uuid.UUID, status string) (*swaps.Populated, error)
}

type ratingSvc interface {
	Submit(ctx context.Context, rater uuid.UUID, req ratings.SubmitRequest) (*ratings.Rating, ratings.Aggregate, error)
}

// Seeder applies fixtures through the services.
type Seeder struct {
	users   accountSvc
	swaps   swapSvc
	ratings ratingSvc
	out     io.Writer
}

// New creates a Seeder that reports progress to out.
func New(us accountSvc, ss swapSvc, rs ratingSvc, out io.Writer) *Seeder {
	if out == nil {
		out = io.Discard
	}
	return &Seeder{users: us, swaps: ss, ratings: rs, out: out}
}

// Result reports what Run created.
type Result struct {
	Users   map[string]uuid.UUID
	Swaps   map[string]uuid.UUID
	Ratings int

	pairs map[uuid.UUID][2]uuid.UUID
}

// Run creates every fixture in order: users, swaps, then ratings.
func (s *Seeder) Run(ctx context.Context, fx *Fixtures) (*Result, error) {
	res := &Result{
		Users: make(map[string]uuid.UUID, len(fx.Users)),
		Swaps: make(map[string]uuid.UUID, len(fx.Swaps)),
		pairs: make(map[uuid.UUID][2]uuid.UUID, len(fx.Swaps)),
	}

	for _, uf := range fx.Users {
		id, err := s.user(ctx, uf)
		if err != nil {
			return res, err
		}
		res.Users[users.NormalizeEmail(uf.Email)] = id
		fmt.Fprintf(s.out, "  user    %-24s password: %s\n", uf.Email, uf.Password)
	}

	for i, sf := range fx.Swaps {
		id, err := s.swap(ctx, sf, res)
		if err != nil {
			return res, fmt.Errorf("swap fixture %d: %w", i, err)
		}
		if sf.Key != "" {
			res.Swaps[sf.Key] = id
		}
		fmt.Fprintf(s.out, "  swap    %s -> %s (%s)\n", sf.Requester, sf.Receiver, sf.Status)
	}

	for i, rf := range fx.Ratings {
		agg, err := s.rating(ctx, rf, res)
		if err != nil {
			return res, fmt.Errorf("rating fixture %d: %w", i, err)
		}
		res.Ratings++
		fmt.Fprintf(s.out, "  rating  %s on %s: %d (ratee now %.2f over %d)\n",
			rf.Rater, rf.Swap, rf.Rating, agg.Rating, agg.Count)
	}
	return res, nil
}

func (s *Seeder) user(ctx context.Context, uf UserFixture) (uuid.UUID, error) {
	u, err := s.users.Register(ctx, uf.Email, uf.Password, uf.Name)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return uuid.Nil, fmt.Errorf("user %s already exists; rerun with --reset", uf.Email)
		}
		return uuid.Nil, fmt.Errorf("register %s: %w", uf.Email, err)
	}

	upd := users.ProfileUpdate{
		Location:      &uf.Location,
		ProfilePhoto:  &uf.ProfilePhoto,
		SkillsOffered: &uf.SkillsOffered,
		SkillsWanted:  &uf.SkillsWanted,
	}
	if uf.Availability != "" {
		upd.Availability = &uf.Availability
	}
	if uf.Private {
		v := users.VisibilityPrivate
		upd.ProfileVisibility = &v
	}
	if _, err := s.users.UpdateProfile(ctx, u.ID, u.ID, upd); err != nil {
		return uuid.Nil, fmt.Errorf("profile for %s: %w", uf.Email, err)
	}
	return u.ID, nil
}

type step struct {
	actor uuid.UUID
	to    swaps.Status
}

// swap creates the request and walks it to the fixture status.
func (s *Seeder) swap(ctx context.Context, sf SwapFixture, res *Result) (uuid.UUID, error) {
	requester, ok := res.Users[users.NormalizeEmail(sf.Requester)]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown requester %q", sf.Requester)
	}
	receiver, ok := res.Users[users.NormalizeEmail(sf.Receiver)]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown receiver %q", sf.Receiver)
	}

	p, err := s.swaps.Create(ctx, requester, swaps.CreateRequest{
		Receiver:       receiver,
		SkillOffered:   sf.SkillOffered,
		SkillRequested: sf.SkillRequested,
		Message:        sf.Message,
	})
	if err != nil {
		return uuid.Nil, err
	}
	res.pairs[p.ID] = [2]uuid.UUID{requester, receiver}

	var steps []step
	switch sf.Status {
	case swaps.StatusPending, "":
	case swaps.StatusAccepted:
		steps = []step{{receiver, swaps.StatusAccepted}}
	case swaps.StatusRejected:
		steps = []step{{receiver, swaps.StatusRejected}}
	case swaps.StatusCompleted:
		steps = []step{{receiver, swaps.StatusAccepted}, {requester, swaps.StatusCompleted}}
	default:
		return uuid.Nil, fmt.Errorf("unknown status %q", sf.Status)
	}

	for _, st := range steps {
		if _, err := s.swaps.Transition(ctx, p.ID, st.actor, string(st.to)); err != nil {
			return uuid.Nil, fmt.Errorf("move to %s: %w", st.to, err)
		}
	}
	return p.ID, nil
}

func (s *Seeder) rating(ctx context.Context, rf RatingFixture, res *Result) (ratings.Aggregate, error) {
	swapID, ok := res.Swaps[rf.Swap]
	if !ok {
		return ratings.Aggregate{}, fmt.Errorf("unknown swap key %q", rf.Swap)
	}
	rater, ok := res.Users[users.NormalizeEmail(rf.Rater)]
	if !ok {
		return ratings.Aggregate{}, fmt.Errorf("unknown rater %q", rf.Rater)
	}
	var ratee uuid.UUID
	switch pair := res.pairs[swapID]; rater {
	case pair[0]:
		ratee = pair[1]
	case pair[1]:
		ratee = pair[0]
	default:
		return ratings.Aggregate{}, fmt.Errorf("%s is not a participant of %q", rf.Rater, rf.Swap)
	}

	_, agg, err := s.ratings.Submit(ctx, rater, ratings.SubmitRequest{
		SwapID:   swapID,
		Ratee:    ratee,
		Score:    rf.Rating,
		Feedback: rf.Feedback,
	})
	return agg, err
}
