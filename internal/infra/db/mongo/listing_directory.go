package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainchat "rentline/internal/domain/chat"
)

// ListingDirectory answers the one question the messaging core asks about
// listings, reading the listings collection owned by the catalog subsystem.
// Nothing here writes.
type ListingDirectory struct {
	col *mongo.Collection
}

func NewListingDirectory(db *mongo.Database) *ListingDirectory {
	return &ListingDirectory{col: db.Collection("listings")}
}

func (d *ListingDirectory) OwnerOf(ctx context.Context, listing domainchat.ListingID) (domainchat.UserID, error) {
	var doc struct {
		Host string `bson:"host_id"`
	}
	if err := d.col.FindOne(ctx, bson.M{"_id": string(listing)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domainchat.ErrListingNotFound
		}
		return "", err
	}
	return domainchat.UserID(doc.Host), nil
}
