package swaps

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
)

// CollectionName is the Mongo collection holding swap documents.
const CollectionName = "swaps"

// swapDoc is the persisted shape of a Swap. Open mirrors Status.Open() and
// backs the partial unique index on the requester/receiver pair.
type swapDoc struct {
	ID             string    `bson:"_id"`
	Requester      string    `bson:"requester"`
	Receiver       string    `bson:"receiver"`
	SkillOffered   string    `bson:"skillOffered"`
	SkillRequested string    `bson:"skillRequested"`
	Status         string    `bson:"status"`
	Open           bool      `bson:"open"`
	Message        string    `bson:"message,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type summaryDoc struct {
	ID           string `bson:"_id"`
	Name         string `bson:"name"`
	Email        string `bson:"email"`
	ProfilePhoto string `bson:"profilePhoto,omitempty"`
}

// populatedDoc is the result shape of the $lookup pipeline.
type populatedDoc struct {
	Swap         swapDoc    `bson:",inline"`
	RequesterDoc summaryDoc `bson:"requesterDoc"`
	ReceiverDoc  summaryDoc `bson:"receiverDoc"`
}

func toSwapDoc(s *Swap) swapDoc {
	return swapDoc{
		ID:             s.ID.String(),
		Requester:      s.Requester.String(),
		Receiver:       s.Receiver.String(),
		SkillOffered:   s.SkillOffered,
		SkillRequested: s.SkillRequested,
		Status:         string(s.Status),
		Open:           s.Status.Open(),
		Message:        s.Message,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (d *swapDoc) toSwap() (*Swap, error) {
	var ids [3]uuid.UUID
	for i, raw := range []string{d.ID, d.Requester, d.Receiver} {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("decode swap id %q: %w", raw, err)
		}
		ids[i] = id
	}
	return &Swap{
		ID:             ids[0],
		Requester:      ids[1],
		Receiver:       ids[2],
		SkillOffered:   d.SkillOffered,
		SkillRequested: d.SkillRequested,
		Status:         Status(d.Status),
		Message:        d.Message,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

func (d *summaryDoc) toSummary() (users.Summary, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return users.Summary{}, fmt.Errorf("decode user id %q: %w", d.ID, err)
	}
	return users.Summary{ID: id, Name: d.Name, Email: d.Email, ProfilePhoto: d.ProfilePhoto}, nil
}

func (d *populatedDoc) toPopulated() (*Populated, error) {
	s, err := d.Swap.toSwap()
	if err != nil {
		return nil, err
	}
	rq, err := d.RequesterDoc.toSummary()
	if err != nil {
		return nil, err
	}
	rc, err := d.ReceiverDoc.toSummary()
	if err != nil {
		return nil, err
	}
	return &Populated{
		ID:             s.ID,
		Requester:      rq,
		Receiver:       rc,
		SkillOffered:   s.SkillOffered,
		SkillRequested: s.SkillRequested,
		Status:         s.Status,
		Message:        s.Message,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}, nil
}

// MongoRepository provides swap storage against MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a MongoRepository on db's swaps collection.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the open-pair guard and the per-participant list indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "requester", Value: 1}, {Key: "receiver", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("open_pair_unique").
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{
			Keys:    bson.D{{Key: "requester", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("requester_created"),
		},
		{
			Keys:    bson.D{{Key: "receiver", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("receiver_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("create swap indexes: %w", err)
	}
	return nil
}

// Create inserts a new swap document. Sets ID, CreatedAt, UpdatedAt on s.
func (r *MongoRepository) Create(ctx context.Context, s *Swap) error {
	s.ID = uuid.New()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, toSwapDoc(s)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrOpenSwapExists
		}
		return fmt.Errorf("create swap: %w", err)
	}
	return nil
}

// Get retrieves a swap by ID.
func (r *MongoRepository) Get(ctx context.Context, id uuid.UUID) (*Swap, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetPopulated retrieves a swap with both participants expanded.
func (r *MongoRepository) GetPopulated(ctx context.Context, id uuid.UUID) (*Populated, error) {
	out, err := r.aggregate(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

// FindOpen returns the pending or accepted swap from requester to receiver, if any.
func (r *MongoRepository) FindOpen(ctx context.Context, requester, receiver uuid.UUID) (*Swap, error) {
	return r.findOne(ctx, bson.M{
		"requester": requester.String(),
		"receiver":  receiver.String(),
		"open":      true,
	})
}

// List returns the actor's swaps, newest first.
func (r *MongoRepository) List(ctx context.Context, actor uuid.UUID, f Filter) ([]*Populated, error) {
	return r.aggregate(ctx, listFilter(actor, f))
}

// UpdateStatus implements Repository with a single conditional UpdateOne.
func (r *MongoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "status": string(from)},
		bson.M{"$set": bson.M{
			"status":    string(to),
			"open":      to.Open(),
			"updatedAt": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("update swap status: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrMismatch(ctx, id)
	}
	return nil
}

// DeletePending implements Repository with a single conditional DeleteOne.
func (r *MongoRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String(), "status": string(StatusPending)})
	if err != nil {
		return fmt.Errorf("delete swap: %w", err)
	}
	if res.DeletedCount == 0 {
		return r.missOrMismatch(ctx, id)
	}
	return nil
}

func (r *MongoRepository) missOrMismatch(ctx context.Context, id uuid.UUID) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check swap: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusMismatch
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Swap, error) {
	var d swapDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find swap: %w", err)
	}
	return d.toSwap()
}

func (r *MongoRepository) aggregate(ctx context.Context, match bson.M) ([]*Populated, error) {
	cur, err := r.coll.Aggregate(ctx, populatePipeline(match))
	if err != nil {
		return nil, fmt.Errorf("aggregate swaps: %w", err)
	}
	var docs []populatedDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode swaps: %w", err)
	}
	out := make([]*Populated, 0, len(docs))
	for i := range docs {
		p, err := docs[i].toPopulated()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// listFilter selects the actor's swaps for the given filter.
func listFilter(actor uuid.UUID, f Filter) bson.M {
	id := actor.String()
	switch f {
	case FilterSent:
		return bson.M{"requester": id}
	case FilterReceived:
		return bson.M{"receiver": id}
	}
	return bson.M{"$or": bson.A{bson.M{"requester": id}, bson.M{"receiver": id}}}
}

// populatePipeline matches swaps, sorts newest first and joins both
// participants from the users collection. Password hashes never leave the
// lookup stage.
func populatePipeline(match bson.M) mongo.Pipeline {
	lookup := func(field, as string) bson.D {
		return bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: users.CollectionName},
			{Key: "localField", Value: field},
			{Key: "foreignField", Value: "_id"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "name", Value: 1},
					{Key: "email", Value: 1},
					{Key: "profilePhoto", Value: 1},
				}}},
			}},
			{Key: "as", Value: as},
		}}}
	}
	unwind := func(path string) bson.D {
		return bson.D{{Key: "$unwind", Value: "$" + path}}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		lookup("requester", "requesterDoc"),
		lookup("receiver", "receiverDoc"),
		unwind("requesterDoc"),
		unwind("receiverDoc"),
	}
}
