package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user lookup finds no matching record.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a signup attempts to use an already-registered email.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository is the storage interface consumed by UserService.
// *PostgresRepository and *MongoRepository satisfy it.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error)
	ListPublic(ctx context.Context, q DirectoryQuery) ([]*User, int, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// userColumns is the column order scanned by scanUser.
const userColumns = `id, email, password_hash, name, location, profile_photo,
	skills_offered, skills_wanted, availability, profile_visibility,
	rating, ratings_count, rating_sum, created_at, updated_at`

// PostgresRepository provides user storage against PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user record. Sets ID, CreatedAt, UpdatedAt on the user.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	q := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.db.Exec(ctx, q,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Location, u.ProfilePhoto,
		nonNil(u.SkillsOffered), nonNil(u.SkillsWanted), u.Availability, string(u.ProfileVisibility),
		u.Rating, u.RatingsCount, u.RatingSum, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by their (normalised) email address.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// UpdateProfile applies the non-nil fields of upd and returns the updated user.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	var visibility *string
	if upd.ProfileVisibility != nil {
		v := string(*upd.ProfileVisibility)
		visibility = &v
	}
	q := `
		UPDATE users SET
			name               = COALESCE($2, name),
			location           = COALESCE($3, location),
			profile_photo      = COALESCE($4, profile_photo),
			skills_offered     = COALESCE($5, skills_offered),
			skills_wanted      = COALESCE($6, skills_wanted),
			availability       = COALESCE($7, availability),
			profile_visibility = COALESCE($8, profile_visibility),
			updated_at         = $9
		WHERE id = $1
		RETURNING ` + userColumns
	return r.scanOne(ctx, q,
		id, upd.Name, upd.Location, upd.ProfilePhoto,
		upd.SkillsOffered, upd.SkillsWanted, upd.Availability, visibility,
		time.Now().UTC(),
	)
}

// ListPublic returns one page of public profiles, newest first, and the total
// number of matches. A non-empty search matches name or any skill entry
// case-insensitively.
func (r *PostgresRepository) ListPublic(ctx context.Context, q DirectoryQuery) ([]*User, int, error) {
	where := `profile_visibility = 'public'`
	args := []any{}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		where += ` AND (name ILIKE $1
			OR EXISTS (SELECT 1 FROM unnest(skills_offered || skills_wanted) AS s WHERE s ILIKE $1))`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	n := len(args)
	listQ := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, where, n+1, n+2)
	rows, err := r.db.Query(ctx, listQ, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// ListIDs returns the IDs of every user.
func (r *PostgresRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// scanOne executes a single-row query and scans the result into a User.
func (r *PostgresRepository) scanOne(ctx context.Context, q string, args ...any) (*User, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	u, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return u, rows.Err()
}

func scanUser(rows pgx.Rows) (*User, error) {
	var u User
	var visibility string
	if err := rows.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Location, &u.ProfilePhoto,
		&u.SkillsOffered, &u.SkillsWanted, &u.Availability, &visibility,
		&u.Rating, &u.RatingsCount, &u.RatingSum, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ProfileVisibility = Visibility(visibility)
	return &u, nil
}

// escapeLike escapes the ILIKE wildcards so the search term matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
