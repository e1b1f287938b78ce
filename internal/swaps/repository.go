package swaps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no swap has the requested ID.
	ErrNotFound = errors.New("swap not found")

	// ErrOpenSwapExists is returned by Create when the requester already has a
	// pending or accepted swap with the same receiver.
	ErrOpenSwapExists = errors.New("open swap already exists for this pair")

	// ErrStatusMismatch is returned by conditional writes when the swap exists
	// but is no longer in the expected status.
	ErrStatusMismatch = errors.New("swap status changed")

	// ErrParticipantMissing is returned by Create when the requester or
	// receiver row does not exist.
	ErrParticipantMissing = errors.New("swap participant does not exist")
)

// Repository is the persistence interface for swaps.
// *PostgresRepository and *MongoRepository satisfy it.
type Repository interface {
	Create(ctx context.Context, s *Swap) error
	Get(ctx context.Context, id uuid.UUID) (*Swap, error)
	GetPopulated(ctx context.Context, id uuid.UUID) (*Populated, error)
	FindOpen(ctx context.Context, requester, receiver uuid.UUID) (*Swap, error)
	List(ctx context.Context, actor uuid.UUID, f Filter) ([]*Populated, error)
	// UpdateStatus sets the status to `to` only if it is currently `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	// DeletePending removes the swap only if it is still pending.
	DeletePending(ctx context.Context, id uuid.UUID) error
}

// PostgresRepository provides swap storage against PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const swapColumns = `id, requester, receiver, skill_offered, skill_requested, status, message, created_at, updated_at`

// populatedSelect joins both participants onto the swap row.
const populatedSelect = `
	SELECT s.id, s.skill_offered, s.skill_requested, s.status, s.message, s.created_at, s.updated_at,
	       rq.id, rq.name, rq.email, rq.profile_photo,
	       rc.id, rc.name, rc.email, rc.profile_photo
	FROM swaps s
	JOIN users rq ON rq.id = s.requester
	JOIN users rc ON rc.id = s.receiver`

// Create inserts a new swap. Sets ID, CreatedAt, UpdatedAt on s.
func (r *PostgresRepository) Create(ctx context.Context, s *Swap) error {
	s.ID = uuid.New()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	q := `INSERT INTO swaps (` + swapColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, q,
		s.ID, s.Requester, s.Receiver, s.SkillOffered, s.SkillRequested,
		string(s.Status), s.Message, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == "23505" && pgErr.ConstraintName == "swaps_open_pair":
				return ErrOpenSwapExists
			case pgErr.Code == "23503":
				return ErrParticipantMissing
			}
		}
		return fmt.Errorf("insert swap: %w", err)
	}
	return nil
}

// Get retrieves a swap by ID.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Swap, error) {
	row := r.db.QueryRow(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = $1`, id)
	s, err := scanSwap(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetPopulated retrieves a swap with both participants expanded.
func (r *PostgresRepository) GetPopulated(ctx context.Context, id uuid.UUID) (*Populated, error) {
	row := r.db.QueryRow(ctx, populatedSelect+` WHERE s.id = $1`, id)
	p, err := scanPopulated(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// FindOpen returns the pending or accepted swap from requester to receiver, if any.
func (r *PostgresRepository) FindOpen(ctx context.Context, requester, receiver uuid.UUID) (*Swap, error) {
	q := `SELECT ` + swapColumns + ` FROM swaps
		WHERE requester = $1 AND receiver = $2 AND status IN ('pending', 'accepted')
		LIMIT 1`
	s, err := scanSwap(r.db.QueryRow(ctx, q, requester, receiver))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns the actor's swaps, newest first.
func (r *PostgresRepository) List(ctx context.Context, actor uuid.UUID, f Filter) ([]*Populated, error) {
	var where string
	switch f {
	case FilterSent:
		where = `s.requester = $1`
	case FilterReceived:
		where = `s.receiver = $1`
	default:
		where = `(s.requester = $1 OR s.receiver = $1)`
	}

	rows, err := r.db.Query(ctx, populatedSelect+` WHERE `+where+` ORDER BY s.created_at DESC`, actor)
	if err != nil {
		return nil, fmt.Errorf("list swaps: %w", err)
	}
	defer rows.Close()

	var out []*Populated
	for rows.Next() {
		p, err := scanPopulated(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus implements Repository with a single conditional UPDATE.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE swaps SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update swap status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrMismatch(ctx, id)
	}
	return nil
}

// DeletePending implements Repository with a single conditional DELETE.
func (r *PostgresRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM swaps WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("delete swap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrMismatch(ctx, id)
	}
	return nil
}

// missOrMismatch distinguishes a missing swap from one whose status moved on.
func (r *PostgresRepository) missOrMismatch(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM swaps WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check swap: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusMismatch
}

func scanSwap(row pgx.Row) (*Swap, error) {
	var s Swap
	var status string
	if err := row.Scan(
		&s.ID, &s.Requester, &s.Receiver, &s.SkillOffered, &s.SkillRequested,
		&status, &s.Message, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan swap: %w", err)
	}
	s.Status = Status(status)
	return &s, nil
}

func scanPopulated(row pgx.Row) (*Populated, error) {
	var p Populated
	var status string
	if err := row.Scan(
		&p.ID, &p.SkillOffered, &p.SkillRequested, &status, &p.Message, &p.CreatedAt, &p.UpdatedAt,
		&p.Requester.ID, &p.Requester.Name, &p.Requester.Email, &p.Requester.ProfilePhoto,
		&p.Receiver.ID, &p.Receiver.Name, &p.Receiver.Email, &p.Receiver.ProfilePhoto,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan populated swap: %w", err)
	}
	p.Status = Status(status)
	return &p, nil
}
