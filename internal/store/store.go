// Package store opens the configured backend and exposes its repositories.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/skillswap/internal/memstore"
	"github.com/jmerrifield20/skillswap/internal/ratings"
	"github.com/jmerrifield20/skillswap/internal/swaps"
	"github.com/jmerrifield20/skillswap/internal/users"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	defaultDatabase = "skillswap"
)

// Config selects and locates the backend.
type Config struct {
	Driver         string
	MongoURI       string
	PostgresURL    string
	ConnectTimeout time.Duration
}

// Store owns the database client and the repositories built on it.
type Store struct {
	Driver  string
	Users   users.Repository
	Swaps   swaps.Repository
	Ratings ratings.Repository

	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	pool        *pgxpool.Pool
	mem         *memstore.Store
}

// Open connects to the configured backend and verifies it with a ping.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	switch strings.ToLower(cfg.Driver) {
	case DriverMongo, "mongodb", "":
		return openMongo(ctx, cfg.MongoURI, logger)
	case DriverPostgres, "postgresql", "pg":
		return openPostgres(ctx, cfg.PostgresURL)
	case DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return NewMemory(memstore.New()), nil
	}
	return nil, fmt.Errorf("unknown database driver %q (want %s, %s or %s)", cfg.Driver, DriverMongo, DriverPostgres, DriverMemory)
}

func openMongo(ctx context.Context, uri string, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(DatabaseName(uri))
	return &Store{
		Driver:      DriverMongo,
		Users:       users.NewMongoRepository(db),
		Swaps:       swaps.NewMongoRepository(db),
		Ratings:     ratings.NewMongoRepository(db, logger),
		mongoClient: client,
		mongoDB:     db,
	}, nil
}

func openPostgres(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{
		Driver:  DriverPostgres,
		Users:   users.NewPostgresRepository(pool),
		Swaps:   swaps.NewPostgresRepository(pool),
		Ratings: ratings.NewPostgresRepository(pool),
		pool:    pool,
	}, nil
}

// NewMemory wraps an in-process store.
func NewMemory(m *memstore.Store) *Store {
	return &Store{
		Driver:  DriverMemory,
		Users:   m.Users(),
		Swaps:   m.Swaps(),
		Ratings: m.Ratings(),
		mem:     m,
	}
}

// DatabaseName extracts the database from a MongoDB URI path, defaulting to
// "skillswap".
func DatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultDatabase
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	switch {
	case s.mongoClient != nil:
		return s.mongoClient.Ping(ctx, nil)
	case s.pool != nil:
		return s.pool.Ping(ctx)
	case s.mem != nil:
		return s.mem.Ping(ctx)
	}
	return errors.New("store not open")
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes creates the MongoDB indexes the repositories rely on. Postgres
// indexes come from migrations, so this is a no-op there.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if s.mongoDB == nil {
		return nil
	}
	for _, repo := range []any{s.Users, s.Swaps, s.Ratings} {
		if ix, ok := repo.(indexer); ok {
			if err := ix.EnsureIndexes(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset deletes every user, swap and rating. Used by the seed command.
func (s *Store) Reset(ctx context.Context) error {
	if s.mongoDB != nil {
		for _, name := range []string{ratings.CollectionName, swaps.CollectionName, users.CollectionName} {
			if _, err := s.mongoDB.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
				return fmt.Errorf("clear %s: %w", name, err)
			}
		}
		return nil
	}
	if s.pool != nil {
		if _, err := s.pool.Exec(ctx, `TRUNCATE ratings, swaps, users`); err != nil {
			return fmt.Errorf("truncate tables: %w", err)
		}
		return nil
	}
	if s.mem != nil {
		return s.mem.Reset(ctx)
	}
	return errors.New("store not open")
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s.mongoClient != nil {
		return s.mongoClient.Disconnect(ctx)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
