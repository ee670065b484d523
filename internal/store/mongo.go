package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	qrCollection    = "qrcodes"
)

// MongoUserRepository persists accounts in a MongoDB collection with a
// unique index on email.
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository ensures the email unique index and returns the
// repository. The index is what makes concurrent check-then-create
// registration safe; the resolver's lookup is only an optimization.
func NewMongoUserRepository(ctx context.Context, db *mongo.Database) (*MongoUserRepository, error) {
	col := db.Collection(usersCollection)

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("creating email index: %w", err)
	}

	return &MongoUserRepository{col: col}, nil
}

// FindByEmail implements UserRepository.
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return &u, nil
}

// FindByID implements UserRepository.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by id: %w", err)
	}
	return &u, nil
}

// Insert implements UserRepository.
func (r *MongoUserRepository) Insert(ctx context.Context, u *User) error {
	_, err := r.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Update implements UserRepository.
func (r *MongoUserRepository) Update(ctx context.Context, u *User) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoQRRepository persists generated codes with a unique slug index.
type MongoQRRepository struct {
	col *mongo.Collection
}

// NewMongoQRRepository ensures the slug unique index and returns the
// repository.
func NewMongoQRRepository(ctx context.Context, db *mongo.Database) (*MongoQRRepository, error) {
	col := db.Collection(qrCollection)

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	if err != nil {
		return nil, fmt.Errorf("creating slug index: %w", err)
	}

	return &MongoQRRepository{col: col}, nil
}

// Insert implements QRRepository.
func (r *MongoQRRepository) Insert(ctx context.Context, qr *QRCode) error {
	_, err := r.col.InsertOne(ctx, qr)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("inserting qr: %w", err)
	}
	return nil
}

// FindByID implements QRRepository.
func (r *MongoQRRepository) FindByID(ctx context.Context, id string) (*QRCode, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindBySlug implements QRRepository.
func (r *MongoQRRepository) FindBySlug(ctx context.Context, slug string) (*QRCode, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *MongoQRRepository) findOne(ctx context.Context, filter bson.M) (*QRCode, error) {
	var qr QRCode
	err := r.col.FindOne(ctx, filter).Decode(&qr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding qr: %w", err)
	}
	return &qr, nil
}

// ListByUser implements QRRepository.
func (r *MongoQRRepository) ListByUser(ctx context.Context, userID string) ([]QRCode, error) {
	cursor, err := r.col.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("listing qr history: %w", err)
	}
	defer cursor.Close(ctx)

	var codes []QRCode
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, fmt.Errorf("decoding qr history: %w", err)
	}
	return codes, nil
}

// Update implements QRRepository.
func (r *MongoQRRepository) Update(ctx context.Context, qr *QRCode) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": qr.ID}, qr)
	if err != nil {
		return fmt.Errorf("updating qr: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements QRRepository.
func (r *MongoQRRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting qr: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementScan implements QRRepository using a single atomic $inc update
// so concurrent scans never lose counts.
func (r *MongoQRRepository) IncrementScan(ctx context.Context, slug string, at time.Time) (*QRCode, error) {
	var qr QRCode
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"slug": slug},
		bson.M{
			"$inc": bson.M{"scanCount": 1},
			"$set": bson.M{"lastScannedAt": at},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&qr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("incrementing scan count: %w", err)
	}
	return &qr, nil
}
