package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileImage is a base64 encoded avatar stored in MongoDB.
type ProfileImage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"userId"`
	FileName    string             `bson:"fileName" json:"fileName"`
	ContentType string             `bson:"contentType" json:"contentType"`
	ImageData   string             `bson:"imageData" json:"imageData"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
