package users

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password Register accepts.
	MinPasswordLength = 6

	DefaultPageSize = 9
	MaxPageSize     = 50

	defaultBcryptCost = 12
)

// UserService implements account, profile and directory logic.
type UserService struct {
	repo       Repository
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo Repository, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, bcryptCost: defaultBcryptCost, logger: logger}
}

// SetBcryptCost overrides the bcrypt work factor used for new password hashes.
// Values outside bcrypt's accepted range are ignored.
func (s *UserService) SetBcryptCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.bcryptCost = cost
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account with email/password credentials.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, apperr.InvalidArgument("missing required fields")
	}
	if len(password) < MinPasswordLength {
		return nil, apperr.InvalidArgument("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := newAccount(email, name)
	u.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

// Authenticate verifies email/password credentials and returns the user on success.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if u.PasswordHash == "" {
		return nil, apperr.Unauthenticated("account uses OAuth login; password not set")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetProfile returns the profile of id as seen by viewer. viewer is uuid.Nil for
// anonymous callers. Private profiles are visible to their owner only.
func (s *UserService) GetProfile(ctx context.Context, viewer, id uuid.UUID) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.ProfileVisibility == VisibilityPrivate && viewer != id {
		return nil, apperr.Forbidden("profile is private")
	}
	return u, nil
}

// UpdateProfile applies a partial profile edit. Only the owner may edit.
func (s *UserService) UpdateProfile(ctx context.Context, actor, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	if actor == uuid.Nil {
		return nil, apperr.Unauthenticated("unauthorized")
	}
	if actor != id {
		return nil, apperr.Forbidden("you can only edit your own profile")
	}
	if err := normalizeUpdate(&upd); err != nil {
		return nil, err
	}

	u, err := s.repo.UpdateProfile(ctx, id, upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// ListDirectory returns one page of public profiles matching q.
func (s *UserService) ListDirectory(ctx context.Context, q DirectoryQuery) (*DirectoryPage, error) {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	// Keep (Page-1)*Limit within int so the store offset never goes negative.
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}

	list, total, err := s.repo.ListPublic(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	if list == nil {
		list = []*User{}
	}
	return &DirectoryPage{Users: list, Pagination: NewPagination(q.Page, q.Limit, total)}, nil
}

// ListIDs returns every user ID; used by maintenance commands.
func (s *UserService) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListIDs(ctx)
}

// GetOrCreateFromOAuth returns the account registered under email, creating a
// password-less account when none exists. The bool is true if newly created.
func (s *UserService) GetOrCreateFromOAuth(ctx context.Context, email, name string) (*User, bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, false, apperr.InvalidArgument("OAuth provider did not return an email address")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup by email: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.Index(email+"@", "@")]
	}
	u := newAccount(email, name)
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost a race with a concurrent first login; use the winner.
			u, err = s.repo.GetByEmail(ctx, email)
			if err != nil {
				return nil, false, fmt.Errorf("lookup after duplicate: %w", err)
			}
			return u, false, nil
		}
		return nil, false, fmt.Errorf("create oauth user: %w", err)
	}

	s.logger.Info("user registered via oauth", zap.String("user_id", u.ID.String()))
	return u, true, nil
}

// newAccount returns a user with the registration defaults applied.
func newAccount(email, name string) *User {
	return &User{
		Email:             email,
		Name:              name,
		SkillsOffered:     []string{},
		SkillsWanted:      []string{},
		Availability:      AvailabilityWeekends,
		ProfileVisibility: VisibilityPublic,
	}
}

// normalizeUpdate trims fields in place and rejects invalid values.
func normalizeUpdate(upd *ProfileUpdate) error {
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return apperr.InvalidArgument("name cannot be empty")
		}
		upd.Name = &n
	}
	if upd.Location != nil {
		l := strings.TrimSpace(*upd.Location)
		upd.Location = &l
	}
	if upd.ProfilePhoto != nil {
		p := strings.TrimSpace(*upd.ProfilePhoto)
		upd.ProfilePhoto = &p
	}
	if upd.SkillsOffered != nil {
		skills := CleanSkills(*upd.SkillsOffered)
		upd.SkillsOffered = &skills
	}
	if upd.SkillsWanted != nil {
		skills := CleanSkills(*upd.SkillsWanted)
		upd.SkillsWanted = &skills
	}
	if upd.Availability != nil && !ValidAvailability(*upd.Availability) {
		return apperr.InvalidArgument("invalid availability %q", *upd.Availability)
	}
	if upd.ProfileVisibility != nil && !upd.ProfileVisibility.Valid() {
		return apperr.InvalidArgument("invalid profile visibility %q", *upd.ProfileVisibility)
	}
	return nil
}

// CleanSkills trims each entry and drops blanks and exact duplicates.
func CleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
