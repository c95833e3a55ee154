// Package mongostore is a MongoDB IdentityStore/ProfileStore adapter.
// Numeric user IDs come from an atomically incremented counters
// collection, keeping ID semantics identical to the relational adapter.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	authcore "github.com/medisync/authcore"
)

const (
	usersCollection    = "users"
	profilesCollection = "patient_profiles"
	countersCollection = "counters"

	userIDSequence = "user_id"
)

type userDocument struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash,omitempty"`
	ProviderType string    `bson:"provider_type"`
	ProviderID   string    `bson:"provider_id,omitempty"`
	Roles        []string  `bson:"roles"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// Store adapts a *mongo.Database to the engine's store interfaces.
type Store struct {
	users    *mongo.Collection
	profiles *mongo.Collection
	counters *mongo.Collection
}

// New wraps the database and creates the uniqueness indexes.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		users:    db.Collection(usersCollection),
		profiles: db.Collection(profilesCollection),
		counters: db.Collection(countersCollection),
	}

	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "provider_type", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"provider_id": bson.M{"$gt": ""}}),
		},
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*authcore.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Store) FindByProviderIdentity(ctx context.Context, providerID string, providerType authcore.ProviderType) (*authcore.User, error) {
	return s.findOne(ctx, bson.M{
		"provider_id":   providerID,
		"provider_type": string(providerType),
	})
}

func (s *Store) FindByID(ctx context.Context, id int64) (*authcore.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) Save(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	out := *user
	if out.ID == 0 {
		id, err := s.nextID(ctx)
		if err != nil {
			return nil, err
		}
		out.ID = id
	}

	doc := toDocument(&out)
	_, err := s.users.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (s *Store) CreatePatientProfile(ctx context.Context, user *authcore.User, name string) error {
	_, err := s.profiles.InsertOne(ctx, bson.M{
		"user_id":    user.ID,
		"username":   user.Username,
		"name":       name,
		"created_at": time.Now().UTC(),
	})
	return err
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*authcore.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromDocument(&doc), nil
}

// nextID atomically bumps the user sequence and returns the new value.
func (s *Store) nextID(ctx context.Context) (int64, error) {
	var seq struct {
		Value int64 `bson:"value"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": userIDSequence},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&seq)
	if err != nil {
		return 0, err
	}
	return seq.Value, nil
}

func toDocument(u *authcore.User) *userDocument {
	roles := u.Roles.Slice()
	tags := make([]string, len(roles))
	for i, r := range roles {
		tags[i] = string(r)
	}

	return &userDocument{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		ProviderType: string(u.ProviderType),
		ProviderID:   u.ProviderID,
		Roles:        tags,
		UpdatedAt:    time.Now().UTC(),
	}
}

func fromDocument(doc *userDocument) *authcore.User {
	u := &authcore.User{
		ID:           doc.ID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		ProviderType: authcore.ProviderType(doc.ProviderType),
		ProviderID:   doc.ProviderID,
		Roles:        authcore.NewRoleSet(),
	}
	for _, r := range doc.Roles {
		u.Roles.Add(authcore.RoleType(r))
	}
	return u
}
