// Package memstore is an in-process backend for development and tests. It
// keeps the same guarantees as the database backends: unique emails, one open
// swap per requester/receiver pair, status-conditional swap writes, one rating
// per swap and rater, and an aggregate that moves with each rating.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/ratings"
	"github.com/jmerrifield20/skillswap/internal/swaps"
	"github.com/jmerrifield20/skillswap/internal/users"
)

// Store holds every record behind one lock.
type Store struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*users.User
	byEmail map[string]uuid.UUID
	swaps   map[uuid.UUID]*swaps.Swap
	ratings []*ratings.Rating
	last    time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*users.User),
		byEmail: make(map[string]uuid.UUID),
		swaps:   make(map[uuid.UUID]*swaps.Swap),
	}
}

// Users returns the users.Repository view of the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s} }

// Swaps returns the swaps.Repository view of the store.
func (s *Store) Swaps() *SwapRepo { return &SwapRepo{s} }

// Ratings returns the ratings.Repository view of the store.
func (s *Store) Ratings() *RatingRepo { return &RatingRepo{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Reset drops every record.
func (s *Store) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[uuid.UUID]*users.User)
	s.byEmail = make(map[string]uuid.UUID)
	s.swaps = make(map[uuid.UUID]*swaps.Swap)
	s.ratings = nil
	return nil
}

// now returns a strictly increasing timestamp so newest-first ordering is
// stable even when records are created within the same clock tick.
// Callers hold s.mu.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// ── Users ─────────────────────────────────────────────────────────────────

// UserRepo implements users.Repository.
type UserRepo struct{ s *Store }

// Create inserts u, assigning ID and timestamps. Emails are unique.
func (r *UserRepo) Create(_ context.Context, u *users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.byEmail[u.Email]; dup {
		return users.ErrDuplicateEmail
	}
	u.ID = uuid.New()
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	cp := cloneUser(u)
	r.s.users[u.ID] = cp
	r.s.byEmail[u.Email] = u.ID
	return nil
}

// GetByID retrieves a copy of the user with id.
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return cloneUser(u), nil
}

// GetByEmail retrieves a copy of the user registered under a normalised email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

// UpdateProfile applies the non-nil fields of upd.
func (r *UserRepo) UpdateProfile(_ context.Context, id uuid.UUID, upd users.ProfileUpdate) (*users.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Location != nil {
		u.Location = *upd.Location
	}
	if upd.ProfilePhoto != nil {
		u.ProfilePhoto = *upd.ProfilePhoto
	}
	if upd.SkillsOffered != nil {
		u.SkillsOffered = append([]string{}, *upd.SkillsOffered...)
	}
	if upd.SkillsWanted != nil {
		u.SkillsWanted = append([]string{}, *upd.SkillsWanted...)
	}
	if upd.Availability != nil {
		u.Availability = *upd.Availability
	}
	if upd.ProfileVisibility != nil {
		u.ProfileVisibility = *upd.ProfileVisibility
	}
	u.UpdatedAt = r.s.now()
	return cloneUser(u), nil
}

// ListPublic returns one page of public profiles, newest first, and the match count.
func (r *UserRepo) ListPublic(_ context.Context, q users.DirectoryQuery) ([]*users.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	term := strings.ToLower(q.Search)
	var matched []*users.User
	for _, u := range r.s.users {
		if u.ProfileVisibility != users.VisibilityPublic {
			continue
		}
		if term != "" && !matchesDirectory(u, term) {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	off := q.Offset()
	if off >= total {
		return []*users.User{}, total, nil
	}
	matched = matched[off:]
	if q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

// ListIDs returns every user ID.
func (r *UserRepo) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*users.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	ids := make([]uuid.UUID, len(list))
	for i, u := range list {
		ids[i] = u.ID
	}
	return ids, nil
}

func matchesDirectory(u *users.User, term string) bool {
	if strings.Contains(strings.ToLower(u.Name), term) {
		return true
	}
	for _, list := range [][]string{u.SkillsOffered, u.SkillsWanted} {
		for _, skill := range list {
			if strings.Contains(strings.ToLower(skill), term) {
				return true
			}
		}
	}
	return false
}

func cloneUser(u *users.User) *users.User {
	cp := *u
	cp.SkillsOffered = append([]string{}, u.SkillsOffered...)
	cp.SkillsWanted = append([]string{}, u.SkillsWanted...)
	return &cp
}

// ── Swaps ─────────────────────────────────────────────────────────────────

// SwapRepo implements swaps.Repository.
type SwapRepo struct{ s *Store }

// Create inserts sw, assigning ID and timestamps. Both participants must exist.
func (r *SwapRepo) Create(_ context.Context, sw *swaps.Swap) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.users[sw.Requester] == nil || r.s.users[sw.Receiver] == nil {
		return swaps.ErrParticipantMissing
	}
	if sw.Status.Open() {
		for _, e := range r.s.swaps {
			if e.Requester == sw.Requester && e.Receiver == sw.Receiver && e.Status.Open() {
				return swaps.ErrOpenSwapExists
			}
		}
	}
	sw.ID = uuid.New()
	sw.CreatedAt = r.s.now()
	sw.UpdatedAt = sw.CreatedAt
	cp := *sw
	r.s.swaps[sw.ID] = &cp
	return nil
}

// Get retrieves a swap by ID.
func (r *SwapRepo) Get(_ context.Context, id uuid.UUID) (*swaps.Swap, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sw, ok := r.s.swaps[id]
	if !ok {
		return nil, swaps.ErrNotFound
	}
	cp := *sw
	return &cp, nil
}

// GetPopulated retrieves a swap with both participants expanded.
func (r *SwapRepo) GetPopulated(_ context.Context, id uuid.UUID) (*swaps.Populated, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sw, ok := r.s.swaps[id]
	if !ok {
		return nil, swaps.ErrNotFound
	}
	p, ok := r.populate(sw)
	if !ok {
		return nil, swaps.ErrNotFound
	}
	return p, nil
}

// FindOpen returns the pending or accepted swap from requester to receiver.
func (r *SwapRepo) FindOpen(_ context.Context, requester, receiver uuid.UUID) (*swaps.Swap, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sw := range r.s.swaps {
		if sw.Requester == requester && sw.Receiver == receiver && sw.Status.Open() {
			cp := *sw
			return &cp, nil
		}
	}
	return nil, swaps.ErrNotFound
}

// List returns actor's swaps matching f, newest first.
func (r *SwapRepo) List(_ context.Context, actor uuid.UUID, f swaps.Filter) ([]*swaps.Populated, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*swaps.Populated
	for _, sw := range r.s.swaps {
		var match bool
		switch f {
		case swaps.FilterSent:
			match = sw.Requester == actor
		case swaps.FilterReceived:
			match = sw.Receiver == actor
		default:
			match = sw.IsParticipant(actor)
		}
		if !match {
			continue
		}
		// Like an inner join: swaps whose participants are gone are skipped.
		if p, ok := r.populate(sw); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus moves a swap from one status to another, failing if it moved first.
func (r *SwapRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to swaps.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sw, ok := r.s.swaps[id]
	if !ok {
		return swaps.ErrNotFound
	}
	if sw.Status != from {
		return swaps.ErrStatusMismatch
	}
	sw.Status = to
	sw.UpdatedAt = r.s.now()
	return nil
}

// DeletePending removes a swap that is still pending.
func (r *SwapRepo) DeletePending(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sw, ok := r.s.swaps[id]
	if !ok {
		return swaps.ErrNotFound
	}
	if sw.Status != swaps.StatusPending {
		return swaps.ErrStatusMismatch
	}
	delete(r.s.swaps, id)
	return nil
}

// populate joins the participants. Callers hold r.s.mu.
func (r *SwapRepo) populate(sw *swaps.Swap) (*swaps.Populated, bool) {
	rq, ok1 := r.s.users[sw.Requester]
	rc, ok2 := r.s.users[sw.Receiver]
	if !ok1 || !ok2 {
		return nil, false
	}
	return &swaps.Populated{
		ID:             sw.ID,
		Requester:      rq.Summary(),
		Receiver:       rc.Summary(),
		SkillOffered:   sw.SkillOffered,
		SkillRequested: sw.SkillRequested,
		Status:         sw.Status,
		Message:        sw.Message,
		CreatedAt:      sw.CreatedAt,
		UpdatedAt:      sw.UpdatedAt,
	}, true
}

// ── Ratings ───────────────────────────────────────────────────────────────

// RatingRepo implements ratings.Repository.
type RatingRepo struct{ s *Store }

// Exists reports whether rater already rated swap.
func (r *RatingRepo) Exists(_ context.Context, swap, rater uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.exists(swap, rater), nil
}

func (r *RatingRepo) exists(swap, rater uuid.UUID) bool {
	for _, rt := range r.s.ratings {
		if rt.Swap == swap && rt.Rater == rater {
			return true
		}
	}
	return false
}

// Submit stores the rating and folds it into the ratee under one lock.
func (r *RatingRepo) Submit(_ context.Context, rt *ratings.Rating) (ratings.Aggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.exists(rt.Swap, rt.Rater) {
		return ratings.Aggregate{}, ratings.ErrDuplicate
	}
	u, ok := r.s.users[rt.Ratee]
	if !ok {
		return ratings.Aggregate{}, ratings.ErrRateeNotFound
	}

	rt.ID = uuid.New()
	rt.CreatedAt = r.s.now()
	rt.UpdatedAt = rt.CreatedAt
	cp := *rt
	r.s.ratings = append(r.s.ratings, &cp)

	agg := ratings.NewAggregate(u.RatingSum+rt.Score, u.RatingsCount+1)
	setAggregate(u, agg)
	u.UpdatedAt = rt.CreatedAt
	return agg, nil
}

// ListByRatee returns the ratings ratee received, newest first.
func (r *RatingRepo) ListByRatee(_ context.Context, ratee uuid.UUID) ([]*ratings.Rating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*ratings.Rating
	for _, rt := range r.s.ratings {
		if rt.Ratee == ratee {
			cp := *rt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Recompute rebuilds ratee's aggregate from the stored ratings.
func (r *RatingRepo) Recompute(_ context.Context, ratee uuid.UUID) (ratings.Aggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[ratee]
	if !ok {
		return ratings.Aggregate{}, ratings.ErrRateeNotFound
	}
	sum, n := 0, 0
	for _, rt := range r.s.ratings {
		if rt.Ratee == ratee {
			sum += rt.Score
			n++
		}
	}
	agg := ratings.NewAggregate(sum, n)
	setAggregate(u, agg)
	u.UpdatedAt = r.s.now()
	return agg, nil
}

func setAggregate(u *users.User, agg ratings.Aggregate) {
	u.Rating = agg.Rating
	u.RatingsCount = agg.Count
	u.RatingSum = agg.Sum
}

var (
	_ users.Repository   = (*UserRepo)(nil)
	_ swaps.Repository   = (*SwapRepo)(nil)
	_ ratings.Repository = (*RatingRepo)(nil)
)
