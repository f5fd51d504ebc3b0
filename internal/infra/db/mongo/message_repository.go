package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "rentline/internal/domain/chat"
)

// MessageRepository persists the append-only message log in chat_messages.
// ObjectIDs give creation-ordered message ids; all ordering is on
// (created_at, _id). Read-marking and unread counting run as single
// conditional bulk operations against the store, never read-then-write
// loops.
type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	col := db.Collection("chat_messages")
	order := mongo.IndexModel{Keys: bson.D{
		{Key: "conversation_id", Value: 1},
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	}}
	unread := mongo.IndexModel{Keys: bson.D{
		{Key: "conversation_id", Value: 1},
		{Key: "sender_id", Value: 1},
		{Key: "read", Value: 1},
	}}
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{order, unread})
	return &MessageRepository{col: col}
}

func (r *MessageRepository) Insert(ctx context.Context, message *domainchat.Message) error {
	id := primitive.NewObjectID()
	if message.ID != "" {
		parsed, err := primitive.ObjectIDFromHex(string(message.ID))
		if err != nil {
			return err
		}
		id = parsed
	}
	doc := messageDocument{
		ID:             id,
		ConversationID: string(message.ConversationID),
		SenderID:       string(message.SenderID),
		Text:           message.Text,
		CreatedAt:      message.CreatedAt.UnixMilli(),
		Read:           message.Read,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return err
	}
	message.ID = domainchat.MessageID(id.Hex())
	return nil
}

func (r *MessageRepository) Page(ctx context.Context, conversation domainchat.ConversationID, skip, take int) ([]domainchat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(take))
	return r.find(ctx, bson.M{"conversation_id": string(conversation)}, opts)
}

func (r *MessageRepository) Recent(ctx context.Context, conversation domainchat.ConversationID, limit int) ([]domainchat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	messages, err := r.find(ctx, bson.M{"conversation_id": string(conversation)}, opts)
	if err != nil {
		return nil, err
	}
	// Query returns newest first; flip to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) Count(ctx context.Context, conversation domainchat.ConversationID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"conversation_id": string(conversation)})
}

func (r *MessageRepository) Last(ctx context.Context, conversation domainchat.ConversationID) (*domainchat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"conversation_id": string(conversation)}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	msg := doc.toDomain()
	return &msg, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, conversations []domainchat.ConversationID, reader domainchat.UserID) (int64, error) {
	res, err := r.col.UpdateMany(ctx, unreadFilter(conversations, reader), bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, conversations []domainchat.ConversationID, reader domainchat.UserID) (int64, error) {
	return r.col.CountDocuments(ctx, unreadFilter(conversations, reader))
}

func (r *MessageRepository) DeleteByConversation(ctx context.Context, conversation domainchat.ConversationID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"conversation_id": string(conversation)})
	return err
}

func (r *MessageRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domainchat.Message, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domainchat.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cursor.Err()
}

func unreadFilter(conversations []domainchat.ConversationID, reader domainchat.UserID) bson.M {
	ids := make([]string, 0, len(conversations))
	for _, id := range conversations {
		ids = append(ids, string(id))
	}
	return bson.M{
		"conversation_id": bson.M{"$in": ids},
		"sender_id":       bson.M{"$ne": string(reader)},
		"read":            false,
	}
}

type messageDocument struct {
	ID             primitive.ObjectID `bson:"_id"`
	ConversationID string             `bson:"conversation_id"`
	SenderID       string             `bson:"sender_id"`
	Text           string             `bson:"text"`
	CreatedAt      int64              `bson:"created_at"`
	Read           bool               `bson:"read"`
}

func (d messageDocument) toDomain() domainchat.Message {
	return domainchat.Message{
		ID:             domainchat.MessageID(d.ID.Hex()),
		ConversationID: domainchat.ConversationID(d.ConversationID),
		SenderID:       domainchat.UserID(d.SenderID),
		Text:           d.Text,
		CreatedAt:      time.UnixMilli(d.CreatedAt).UTC(),
		Read:           d.Read,
	}
}
