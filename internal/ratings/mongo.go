package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/users"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CollectionName is the Mongo collection holding rating documents.
const CollectionName = "ratings"

type ratingDoc struct {
	ID        string    `bson:"_id"`
	Swap      string    `bson:"swap"`
	Rater     string    `bson:"rater"`
	Ratee     string    `bson:"ratee"`
	Rating    int       `bson:"rating"`
	Feedback  string    `bson:"feedback,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toRatingDoc(r *Rating) ratingDoc {
	return ratingDoc{
		ID:        r.ID.String(),
		Swap:      r.Swap.String(),
		Rater:     r.Rater.String(),
		Ratee:     r.Ratee.String(),
		Rating:    r.Score,
		Feedback:  r.Feedback,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (d *ratingDoc) toRating() (*Rating, error) {
	var ids [4]uuid.UUID
	for i, raw := range []string{d.ID, d.Swap, d.Rater, d.Ratee} {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("decode rating id %q: %w", raw, err)
		}
		ids[i] = id
	}
	return &Rating{
		ID:        ids[0],
		Swap:      ids[1],
		Rater:     ids[2],
		Ratee:     ids[3],
		Score:     d.Rating,
		Feedback:  d.Feedback,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// MongoRepository provides rating storage against MongoDB. Aggregates are
// written to the users collection of the same database.
type MongoRepository struct {
	coll   *mongo.Collection
	users  *mongo.Collection
	logger *zap.Logger
}

// NewMongoRepository creates a MongoRepository on db.
func NewMongoRepository(db *mongo.Database, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{
		coll:   db.Collection(CollectionName),
		users:  db.Collection(users.CollectionName),
		logger: logger,
	}
}

// EnsureIndexes creates the one-rating-per-swap-per-rater guard and the
// received-ratings index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "swap", Value: 1}, {Key: "rater", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("swap_rater_unique"),
		},
		{
			Keys:    bson.D{{Key: "ratee", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("ratee_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("create rating indexes: %w", err)
	}
	return nil
}

// Exists reports whether rater has already rated swap.
func (r *MongoRepository) Exists(ctx context.Context, swap, rater uuid.UUID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx,
		bson.M{"swap": swap.String(), "rater": rater.String()},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("check rating: %w", err)
	}
	return n > 0, nil
}

// Submit inserts the rating, then folds it into the ratee with one pipeline
// update. If the fold fails the rating is deleted again so the aggregate and
// the stored ratings stay consistent.
func (r *MongoRepository) Submit(ctx context.Context, rt *Rating) (Aggregate, error) {
	rt.ID = uuid.New()
	now := time.Now().UTC()
	rt.CreatedAt = now
	rt.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, toRatingDoc(rt)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Aggregate{}, ErrDuplicate
		}
		return Aggregate{}, fmt.Errorf("insert rating: %w", err)
	}

	agg, err := r.fold(ctx, rt.Ratee, rt.Score, now)
	if err != nil {
		r.compensate(ctx, rt.ID)
		return Aggregate{}, err
	}
	return agg, nil
}

func (r *MongoRepository) fold(ctx context.Context, ratee uuid.UUID, score int, now time.Time) (Aggregate, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"rating": 1, "ratingsCount": 1, "ratingSum": 1})

	var d struct {
		Rating       float64 `bson:"rating"`
		RatingsCount int     `bson:"ratingsCount"`
		RatingSum    int     `bson:"ratingSum"`
	}
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": ratee.String()}, foldPipeline(score, now), opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Aggregate{}, ErrRateeNotFound
		}
		return Aggregate{}, fmt.Errorf("update ratee aggregate: %w", err)
	}
	return Aggregate{Rating: d.Rating, Count: d.RatingsCount, Sum: d.RatingSum}, nil
}

// compensate removes a rating whose aggregate update failed. It runs even if
// the request context was cancelled.
func (r *MongoRepository) compensate(ctx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		r.logger.Error("failed to remove orphaned rating; run recompute-ratings",
			zap.String("rating_id", id.String()),
			zap.Error(err),
		)
	}
}

// ListByRatee returns every rating received by ratee, newest first.
func (r *MongoRepository) ListByRatee(ctx context.Context, ratee uuid.UUID) ([]*Rating, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"ratee": ratee.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	var docs []ratingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ratings: %w", err)
	}
	out := make([]*Rating, 0, len(docs))
	for i := range docs {
		rt, err := docs[i].toRating()
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

// Recompute sums the ratee's ratings server-side and writes the result back.
func (r *MongoRepository) Recompute(ctx context.Context, ratee uuid.UUID) (Aggregate, error) {
	cur, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ratee": ratee.String()}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "sum", Value: bson.M{"$sum": "$rating"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
	})
	if err != nil {
		return Aggregate{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	var groups []struct {
		Sum   int `bson:"sum"`
		Count int `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return Aggregate{}, fmt.Errorf("decode rating totals: %w", err)
	}

	agg := NewAggregate(0, 0)
	if len(groups) == 1 {
		agg = NewAggregate(groups[0].Sum, groups[0].Count)
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": ratee.String()}, bson.M{"$set": bson.M{
		"rating":       agg.Rating,
		"ratingsCount": agg.Count,
		"ratingSum":    agg.Sum,
		"updatedAt":    time.Now().UTC(),
	}})
	if err != nil {
		return Aggregate{}, fmt.Errorf("write aggregate: %w", err)
	}
	if res.MatchedCount == 0 {
		return Aggregate{}, ErrRateeNotFound
	}
	return agg, nil
}

// foldPipeline is the update pipeline adding one score to a user's aggregate.
// The second stage sees the values written by the first.
func foldPipeline(score int, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "ratingSum", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$ratingSum", 0}}, score}}},
			{Key: "ratingsCount", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$ratingsCount", 0}}, 1}}},
			{Key: "updatedAt", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "rating", Value: bson.M{"$divide": bson.A{"$ratingSum", "$ratingsCount"}}},
		}}},
	}
}
