package users_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
	"github.com/jmerrifield20/skillswap/internal/users"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ── Stub repo ─────────────────────────────────────────────────────────────

type stubUserRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*users.User
	byEmail map[string]uuid.UUID
	clock   time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byID:    make(map[uuid.UUID]*users.User),
		byEmail: make(map[string]uuid.UUID),
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *stubUserRepo) Create(_ context.Context, u *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[u.Email]; exists {
		return users.ErrDuplicateEmail
	}
	u.ID = uuid.New()
	// Strictly increasing timestamps keep newest-first ordering deterministic.
	r.clock = r.clock.Add(time.Second)
	u.CreatedAt = r.clock
	u.UpdatedAt = r.clock
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id uuid.UUID, upd users.ProfileUpdate) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
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
		u.SkillsOffered = *upd.SkillsOffered
	}
	if upd.SkillsWanted != nil {
		u.SkillsWanted = *upd.SkillsWanted
	}
	if upd.Availability != nil {
		u.Availability = *upd.Availability
	}
	if upd.ProfileVisibility != nil {
		u.ProfileVisibility = *upd.ProfileVisibility
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) ListPublic(_ context.Context, q users.DirectoryQuery) ([]*users.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	term := strings.ToLower(q.Search)
	var matched []*users.User
	for _, u := range r.byID {
		if u.ProfileVisibility != users.VisibilityPublic {
			continue
		}
		if term != "" && !matches(u, term) {
			continue
		}
		cp := *u
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	off := q.Offset()
	if off > len(matched) {
		return nil, total, nil
	}
	matched = matched[off:]
	if q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (r *stubUserRepo) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids, nil
}

func matches(u *users.User, term string) bool {
	if strings.Contains(strings.ToLower(u.Name), term) {
		return true
	}
	for _, s := range append(append([]string{}, u.SkillsOffered...), u.SkillsWanted...) {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// ── Helper ────────────────────────────────────────────────────────────────

func newTestUserService(repo *stubUserRepo) *users.UserService {
	svc := users.NewUserService(repo, zap.NewNop())
	svc.SetBcryptCost(bcrypt.MinCost)
	return svc
}

func register(t *testing.T, svc *users.UserService, email, name string) *users.User {
	t.Helper()
	u, err := svc.Register(context.Background(), email, "password123", name)
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return u
}

func strPtr(s string) *string { return &s }

// ── Tests ─────────────────────────────────────────────────────────────────

func TestRegister_success(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())

	u, err := svc.Register(context.Background(), "  Alice@Example.com ", "password123", " Alice ")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("expected normalised email, got %q", u.Email)
	}
	if u.Name != "Alice" {
		t.Errorf("expected trimmed name, got %q", u.Name)
	}
	if u.PasswordHash == "" || u.PasswordHash == "password123" {
		t.Error("expected a bcrypt hash to be stored")
	}
	if u.Availability != users.AvailabilityWeekends {
		t.Errorf("expected default availability, got %q", u.Availability)
	}
	if u.ProfileVisibility != users.VisibilityPublic {
		t.Errorf("expected public visibility, got %q", u.ProfileVisibility)
	}
	if u.Rating != 0 || u.RatingsCount != 0 {
		t.Errorf("expected zero rating, got %v/%d", u.Rating, u.RatingsCount)
	}
}

func TestRegister_duplicateEmail(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	register(t, svc, "alice@example.com", "Alice")

	_, err := svc.Register(context.Background(), "ALICE@example.com", "password456", "Alice2")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestRegister_validation(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())

	cases := []struct {
		name, email, password, display string
	}{
		{"missing email", "", "password123", "Bob"},
		{"missing password", "bob@example.com", "", "Bob"},
		{"missing name", "bob@example.com", "password123", "  "},
		{"short password", "bob@example.com", "12345", "Bob"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.email, tc.password, tc.display)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	registered := register(t, svc, "alice@example.com", "Alice")

	u, err := svc.Authenticate(context.Background(), "Alice@Example.com", "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != registered.ID {
		t.Errorf("expected stable identity %s, got %s", registered.ID, u.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "alice@example.com", "wrongpass"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("wrong password: expected unauthenticated, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "password123"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("unknown user: expected unauthenticated, got %v", err)
	}
}

func TestAuthenticate_oauthOnlyAccount(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	if _, _, err := svc.GetOrCreateFromOAuth(context.Background(), "carol@example.com", "Carol"); err != nil {
		t.Fatalf("GetOrCreateFromOAuth: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "carol@example.com", ""); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestGetProfile_privacy(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	alice := register(t, svc, "alice@example.com", "Alice")
	bob := register(t, svc, "bob@example.com", "Bob")

	private := users.VisibilityPrivate
	if _, err := svc.UpdateProfile(context.Background(), alice.ID, alice.ID, users.ProfileUpdate{ProfileVisibility: &private}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if _, err := svc.GetProfile(context.Background(), bob.ID, alice.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-owner: expected forbidden, got %v", err)
	}
	if _, err := svc.GetProfile(context.Background(), uuid.Nil, alice.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("anonymous: expected forbidden, got %v", err)
	}
	if _, err := svc.GetProfile(context.Background(), alice.ID, alice.ID); err != nil {
		t.Errorf("owner: expected success, got %v", err)
	}
	if _, err := svc.GetProfile(context.Background(), alice.ID, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: expected not found, got %v", err)
	}
}

func TestUpdateProfile_ownerOnly(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	alice := register(t, svc, "alice@example.com", "Alice")
	bob := register(t, svc, "bob@example.com", "Bob")

	_, err := svc.UpdateProfile(context.Background(), bob.ID, alice.ID, users.ProfileUpdate{Name: strPtr("Mallory")})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	_, err = svc.UpdateProfile(context.Background(), uuid.Nil, alice.ID, users.ProfileUpdate{Name: strPtr("Mallory")})
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestUpdateProfile_normalisesFields(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	alice := register(t, svc, "alice@example.com", "Alice")

	offered := []string{" React ", "", "Go", "React"}
	u, err := svc.UpdateProfile(context.Background(), alice.ID, alice.ID, users.ProfileUpdate{
		SkillsOffered: &offered,
		Availability:  strPtr(users.AvailabilityEvenings),
		Location:      strPtr("  Berlin "),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if len(u.SkillsOffered) != 2 || u.SkillsOffered[0] != "React" || u.SkillsOffered[1] != "Go" {
		t.Errorf("unexpected skills %v", u.SkillsOffered)
	}
	if u.Availability != users.AvailabilityEvenings {
		t.Errorf("unexpected availability %q", u.Availability)
	}
	if u.Location != "Berlin" {
		t.Errorf("unexpected location %q", u.Location)
	}
	if u.Name != "Alice" {
		t.Errorf("name should be unchanged, got %q", u.Name)
	}
}

func TestUpdateProfile_rejectsInvalidValues(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	alice := register(t, svc, "alice@example.com", "Alice")

	bogus := users.Visibility("friends")
	cases := map[string]users.ProfileUpdate{
		"blank name":   {Name: strPtr("   ")},
		"availability": {Availability: strPtr("mornings")},
		"visibility":   {ProfileVisibility: &bogus},
	}
	for name, upd := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), alice.ID, alice.ID, upd)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestListDirectory_searchPublicOnly(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	ctx := context.Background()

	alice := register(t, svc, "alice@example.com", "Alice")
	bob := register(t, svc, "bob@example.com", "Bob")
	carol := register(t, svc, "carol@example.com", "Carol Reactor")
	dave := register(t, svc, "dave@example.com", "Dave")

	aliceSkills := []string{"react native"}
	svc.UpdateProfile(ctx, alice.ID, alice.ID, users.ProfileUpdate{SkillsOffered: &aliceSkills})
	bobWanted := []string{"Photography"}
	svc.UpdateProfile(ctx, bob.ID, bob.ID, users.ProfileUpdate{SkillsWanted: &bobWanted})
	daveSkills := []string{"React"}
	private := users.VisibilityPrivate
	svc.UpdateProfile(ctx, dave.ID, dave.ID, users.ProfileUpdate{SkillsWanted: &daveSkills, ProfileVisibility: &private})

	page, err := svc.ListDirectory(ctx, users.DirectoryQuery{Search: "React"})
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	got := map[uuid.UUID]bool{}
	for _, u := range page.Users {
		got[u.ID] = true
	}
	if len(got) != 2 || !got[alice.ID] || !got[carol.ID] {
		t.Errorf("expected alice and carol, got %v", page.Users)
	}
	if page.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", page.Pagination.Total)
	}
}

func TestListDirectory_pagination(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	for i := 0; i < 12; i++ {
		register(t, svc, uuid.NewString()+"@example.com", "User")
	}

	first, err := svc.ListDirectory(context.Background(), users.DirectoryQuery{})
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	p := first.Pagination
	if p.Page != 1 || p.Limit != users.DefaultPageSize || p.Total != 12 || p.TotalPages != 2 {
		t.Errorf("unexpected pagination %+v", p)
	}
	if !p.HasNext || p.HasPrev {
		t.Errorf("page 1: expected hasNext and !hasPrev, got %+v", p)
	}
	if len(first.Users) != 9 {
		t.Errorf("expected 9 users on page 1, got %d", len(first.Users))
	}

	second, _ := svc.ListDirectory(context.Background(), users.DirectoryQuery{Page: 2, Limit: 9})
	if second.Pagination.HasNext || !second.Pagination.HasPrev {
		t.Errorf("page 2: unexpected pagination %+v", second.Pagination)
	}
	if len(second.Users) != 3 {
		t.Errorf("expected 3 users on page 2, got %d", len(second.Users))
	}

	capped, _ := svc.ListDirectory(context.Background(), users.DirectoryQuery{Limit: 500})
	if capped.Pagination.Limit != users.MaxPageSize {
		t.Errorf("expected limit capped at %d, got %d", users.MaxPageSize, capped.Pagination.Limit)
	}
}

func TestListDirectory_hugePage(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	register(t, svc, "alice@example.com", "Alice")

	page, err := svc.ListDirectory(context.Background(), users.DirectoryQuery{Page: 288230376151711745, Limit: 50})
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if len(page.Users) != 0 {
		t.Errorf("expected an empty page, got %d users", len(page.Users))
	}
	p := page.Pagination
	if p.Page != math.MaxInt/50 || p.Total != 1 || p.HasNext {
		t.Errorf("unexpected pagination %+v", p)
	}
	if off := (users.DirectoryQuery{Page: p.Page, Limit: p.Limit}).Offset(); off < 0 {
		t.Errorf("offset overflowed to %d", off)
	}
}

func TestListDirectory_emptyIsNotNil(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	page, err := svc.ListDirectory(context.Background(), users.DirectoryQuery{Search: "nothing"})
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if page.Users == nil {
		t.Error("expected empty slice, got nil")
	}
	if page.Pagination.TotalPages != 0 || page.Pagination.HasNext {
		t.Errorf("unexpected pagination %+v", page.Pagination)
	}
}

func TestGetOrCreateFromOAuth(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	ctx := context.Background()

	u, created, err := svc.GetOrCreateFromOAuth(ctx, "Bob@GitHub.com", "")
	if err != nil {
		t.Fatalf("GetOrCreateFromOAuth: %v", err)
	}
	if !created {
		t.Error("expected created=true for new OAuth user")
	}
	if u.Name != "bob" {
		t.Errorf("expected name derived from email, got %q", u.Name)
	}

	again, created, err := svc.GetOrCreateFromOAuth(ctx, "bob@github.com", "Bob")
	if err != nil {
		t.Fatalf("second GetOrCreateFromOAuth: %v", err)
	}
	if created || again.ID != u.ID {
		t.Errorf("expected existing account %s, got %s (created=%v)", u.ID, again.ID, created)
	}
}
