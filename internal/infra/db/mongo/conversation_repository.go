package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "rentline/internal/domain/chat"
)

// ConversationRepository persists conversations in the chat_conversations
// collection. The unique compound index on the canonical triple is the sole
// mechanism closing the duplicate-creation race: a lost race surfaces as a
// duplicate-key error which callers translate into a lookup.
type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	col := db.Collection("chat_conversations")
	idx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "participant_low", Value: 1},
			{Key: "participant_high", Value: 1},
			{Key: "listing_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ConversationRepository{col: col}
}

func (r *ConversationRepository) Insert(ctx context.Context, conversation *domainchat.Conversation) error {
	_, err := r.col.InsertOne(ctx, newConversationDocument(conversation))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainchat.ErrConversationExists
		}
		return err
	}
	return nil
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ConversationRepository) ByTriple(ctx context.Context, low, high domainchat.UserID, listing domainchat.ListingID) (*domainchat.Conversation, error) {
	filter := bson.M{
		"participant_low":  string(low),
		"participant_high": string(high),
		"listing_id":       string(listing),
	}
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ConversationRepository) ByParticipant(ctx context.Context, user domainchat.UserID) ([]domainchat.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"participant_low": string(user)},
		bson.M{"participant_high": string(user)},
	}}
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domainchat.Conversation
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toDomain())
	}
	return out, cursor.Err()
}

func (r *ConversationRepository) Delete(ctx context.Context, id domainchat.ConversationID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainchat.ErrNotFound
	}
	return nil
}

type conversationDocument struct {
	ID              string `bson:"_id"`
	ParticipantLow  string `bson:"participant_low"`
	ParticipantHigh string `bson:"participant_high"`
	ListingID       string `bson:"listing_id"`
	CreatedAt       int64  `bson:"created_at"`
}

func newConversationDocument(c *domainchat.Conversation) conversationDocument {
	return conversationDocument{
		ID:              string(c.ID),
		ParticipantLow:  string(c.ParticipantLow),
		ParticipantHigh: string(c.ParticipantHigh),
		ListingID:       string(c.ListingID),
		CreatedAt:       c.CreatedAt.UnixMilli(),
	}
}

func (d conversationDocument) toDomain() *domainchat.Conversation {
	return &domainchat.Conversation{
		ID:              domainchat.ConversationID(d.ID),
		ParticipantLow:  domainchat.UserID(d.ParticipantLow),
		ParticipantHigh: domainchat.UserID(d.ParticipantHigh),
		ListingID:       domainchat.ListingID(d.ListingID),
		CreatedAt:       time.UnixMilli(d.CreatedAt).UTC(),
	}
}
