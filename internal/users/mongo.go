package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the Mongo collection holding user documents.
const CollectionName = "users"

// userDoc is the persisted shape of a User in MongoDB.
type userDoc struct {
	ID                string    `bson:"_id"`
	Email             string    `bson:"email"`
	Password          string    `bson:"password"`
	Name              string    `bson:"name"`
	Location          string    `bson:"location,omitempty"`
	ProfilePhoto      string    `bson:"profilePhoto,omitempty"`
	SkillsOffered     []string  `bson:"skillsOffered"`
	SkillsWanted      []string  `bson:"skillsWanted"`
	Availability      string    `bson:"availability"`
	ProfileVisibility string    `bson:"profileVisibility"`
	Rating            float64   `bson:"rating"`
	RatingsCount      int       `bson:"ratingsCount"`
	RatingSum         int       `bson:"ratingSum"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt"`
}

func toUserDoc(u *User) userDoc {
	return userDoc{
		ID:                u.ID.String(),
		Email:             u.Email,
		Password:          u.PasswordHash,
		Name:              u.Name,
		Location:          u.Location,
		ProfilePhoto:      u.ProfilePhoto,
		SkillsOffered:     nonNil(u.SkillsOffered),
		SkillsWanted:      nonNil(u.SkillsWanted),
		Availability:      u.Availability,
		ProfileVisibility: string(u.ProfileVisibility),
		Rating:            u.Rating,
		RatingsCount:      u.RatingsCount,
		RatingSum:         u.RatingSum,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (d *userDoc) toUser() (*User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode user id %q: %w", d.ID, err)
	}
	return &User{
		ID:                id,
		Email:             d.Email,
		PasswordHash:      d.Password,
		Name:              d.Name,
		Location:          d.Location,
		ProfilePhoto:      d.ProfilePhoto,
		SkillsOffered:     nonNil(d.SkillsOffered),
		SkillsWanted:      nonNil(d.SkillsWanted),
		Availability:      d.Availability,
		ProfileVisibility: Visibility(d.ProfileVisibility),
		Rating:            d.Rating,
		RatingsCount:      d.RatingsCount,
		RatingSum:         d.RatingSum,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

// MongoRepository provides user storage against MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a MongoRepository on db's users collection.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique email index and the directory sort index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "profileVisibility", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("visibility_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user document. Sets ID, CreatedAt, UpdatedAt on the user.
func (r *MongoRepository) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, toUserDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *MongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByEmail retrieves a user by their (normalised) email address.
func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// UpdateProfile applies the non-nil fields of upd and returns the updated user.
func (r *MongoRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	set := profileSet(upd)
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d userDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return d.toUser()
}

// ListPublic returns one page of public profiles, newest first, and the total
// number of matches.
func (r *MongoRepository) ListPublic(ctx context.Context, q DirectoryQuery) ([]*User, int, error) {
	filter := directoryFilter(q.Search)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	out := make([]*User, 0, len(docs))
	for i := range docs {
		u, err := docs[i].toUser()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, int(total), nil
}

// ListIDs returns the IDs of every user.
func (r *MongoRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode user ids: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("decode user id %q: %w", d.ID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return d.toUser()
}

// directoryFilter builds the public-directory filter. The search term is
// quoted so it matches as a literal, case-insensitive substring.
func directoryFilter(search string) bson.M {
	filter := bson.M{"profileVisibility": string(VisibilityPublic)}
	if search == "" {
		return filter
	}
	re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	filter["$or"] = bson.A{
		bson.M{"name": re},
		bson.M{"skillsOffered": re},
		bson.M{"skillsWanted": re},
	}
	return filter
}

// profileSet maps the non-nil fields of upd onto document field names.
func profileSet(upd ProfileUpdate) bson.M {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.ProfilePhoto != nil {
		set["profilePhoto"] = *upd.ProfilePhoto
	}
	if upd.SkillsOffered != nil {
		set["skillsOffered"] = nonNil(*upd.SkillsOffered)
	}
	if upd.SkillsWanted != nil {
		set["skillsWanted"] = nonNil(*upd.SkillsWanted)
	}
	if upd.Availability != nil {
		set["availability"] = *upd.Availability
	}
	if upd.ProfileVisibility != nil {
		set["profileVisibility"] = string(*upd.ProfileVisibility)
	}
	return set
}
