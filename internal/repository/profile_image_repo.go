package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

// ErrProfileImageNotFound indicates no image matched the lookup.
var ErrProfileImageNotFound = errors.New("profile image not found")

// ProfileImageRepository persists avatars in the profile_images collection.
type ProfileImageRepository interface {
	Create(ctx context.Context, image *models.ProfileImage) (string, error)
	GetByID(ctx context.Context, id string) (models.ProfileImage, error)
	DeleteOwned(ctx context.Context, id, userID string) error
}

type profileImageRepository struct {
	collection *mongo.Collection
}

// NewProfileImageRepository creates a profile image repository.
func NewProfileImageRepository(db *mongo.Database) ProfileImageRepository {
	return &profileImageRepository{
		collection: db.Collection("profile_images"),
	}
}

func (r *profileImageRepository) Create(ctx context.Context, image *models.ProfileImage) (string, error) {
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, image)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	image.ID = oid
	return oid.Hex(), nil
}

func (r *profileImageRepository) GetByID(ctx context.Context, id string) (models.ProfileImage, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ProfileImage{}, ErrProfileImageNotFound
	}

	var image models.ProfileImage
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&image)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProfileImage{}, ErrProfileImageNotFound
	}
	if err != nil {
		return models.ProfileImage{}, err
	}
	return image, nil
}

// DeleteOwned removes the image only when both id and owner match.
func (r *profileImageRepository) DeleteOwned(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrProfileImageNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrProfileImageNotFound
	}
	return nil
}
