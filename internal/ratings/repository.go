package ratings

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
	// ErrDuplicate is returned when the rater already rated this swap.
	ErrDuplicate = errors.New("rating already exists")

	// ErrRateeNotFound is returned when the rated user does not exist.
	ErrRateeNotFound = errors.New("ratee not found")
)

// Repository is the persistence interface for ratings.
// *PostgresRepository and *MongoRepository satisfy it.
type Repository interface {
	Exists(ctx context.Context, swap, rater uuid.UUID) (bool, error)
	// Submit persists r and folds its score into the ratee's aggregate as one
	// atomic store-side update. Sets ID, CreatedAt, UpdatedAt on r.
	Submit(ctx context.Context, r *Rating) (Aggregate, error)
	ListByRatee(ctx context.Context, ratee uuid.UUID) ([]*Rating, error)
	// Recompute rebuilds the ratee's aggregate from every stored rating.
	Recompute(ctx context.Context, ratee uuid.UUID) (Aggregate, error)
}

// PostgresRepository provides rating storage against PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const ratingColumns = `id, swap_id, rater, ratee, rating, feedback, created_at, updated_at`

// Exists reports whether rater has already rated swap.
func (r *PostgresRepository) Exists(ctx context.Context, swap, rater uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ratings WHERE swap_id = $1 AND rater = $2)`, swap, rater,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check rating: %w", err)
	}
	return exists, nil
}

// Submit inserts the rating and updates the ratee in one transaction. The
// aggregate UPDATE reads the pre-update row, so concurrent submissions for the
// same ratee serialise on the row lock without losing increments.
func (r *PostgresRepository) Submit(ctx context.Context, rt *Rating) (Aggregate, error) {
	rt.ID = uuid.New()
	now := time.Now().UTC()
	rt.CreatedAt = now
	rt.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Aggregate{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO ratings (`+ratingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rt.ID, rt.Swap, rt.Rater, rt.Ratee, rt.Score, rt.Feedback, rt.CreatedAt, rt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Aggregate{}, ErrDuplicate
			case "23503":
				if pgErr.ConstraintName == "ratings_ratee_fkey" {
					return Aggregate{}, ErrRateeNotFound
				}
			}
		}
		return Aggregate{}, fmt.Errorf("insert rating: %w", err)
	}

	var agg Aggregate
	err = tx.QueryRow(ctx, `
		UPDATE users SET
			rating_sum    = rating_sum + $2,
			ratings_count = ratings_count + 1,
			rating        = (rating_sum + $2)::float8 / (ratings_count + 1),
			updated_at    = $3
		WHERE id = $1
		RETURNING rating, ratings_count, rating_sum`,
		rt.Ratee, rt.Score, now,
	).Scan(&agg.Rating, &agg.Count, &agg.Sum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Aggregate{}, ErrRateeNotFound
		}
		return Aggregate{}, fmt.Errorf("update ratee aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Aggregate{}, fmt.Errorf("commit rating: %w", err)
	}
	return agg, nil
}

// ListByRatee returns every rating received by ratee, newest first.
func (r *PostgresRepository) ListByRatee(ctx context.Context, ratee uuid.UUID) ([]*Rating, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE ratee = $1 ORDER BY created_at DESC`, ratee)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var out []*Rating
	for rows.Next() {
		var rt Rating
		if err := rows.Scan(
			&rt.ID, &rt.Swap, &rt.Rater, &rt.Ratee, &rt.Score, &rt.Feedback, &rt.CreatedAt, &rt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, &rt)
	}
	return out, rows.Err()
}

// Recompute implements Repository with a single UPDATE ... FROM aggregate.
func (r *PostgresRepository) Recompute(ctx context.Context, ratee uuid.UUID) (Aggregate, error) {
	var agg Aggregate
	err := r.db.QueryRow(ctx, `
		UPDATE users u SET
			rating_sum    = a.total,
			ratings_count = a.n,
			rating        = CASE WHEN a.n = 0 THEN 0 ELSE a.total::float8 / a.n END,
			updated_at    = now()
		FROM (
			SELECT COALESCE(SUM(rating), 0)::int AS total, COUNT(*)::int AS n
			FROM ratings WHERE ratee = $1
		) a
		WHERE u.id = $1
		RETURNING u.rating, u.ratings_count, u.rating_sum`,
		ratee,
	).Scan(&agg.Rating, &agg.Count, &agg.Sum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Aggregate{}, ErrRateeNotFound
		}
		return Aggregate{}, fmt.Errorf("recompute ratings: %w", err)
	}
	return agg, nil
}
