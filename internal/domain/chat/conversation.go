package chat

import (
	"context"
	"strings"
	"time"
)

type ConversationID string
type UserID string
type ListingID string

// Conversation is the unique record of contact between two users about one
// listing. The participant pair is stored in canonical order so (A,B) and
// (B,A) map to the same row. Fields are immutable after creation.
type Conversation struct {
	ID              ConversationID
	ParticipantLow  UserID
	ParticipantHigh UserID
	ListingID       ListingID
	CreatedAt       time.Time
}

// CanonicalPair orders two user ids so the unordered pair has one stored
// representation.
func CanonicalPair(a, b UserID) (UserID, UserID) {
	if b < a {
		return b, a
	}
	return a, b
}

// NewConversation builds a conversation for the canonicalized pair.
func NewConversation(id ConversationID, a, b UserID, listing ListingID, now time.Time) (*Conversation, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrIDRequired
	}
	if a == b {
		return nil, ErrSelfConversation
	}
	low, high := CanonicalPair(a, b)
	return &Conversation{
		ID:              id,
		ParticipantLow:  low,
		ParticipantHigh: high,
		ListingID:       listing,
		CreatedAt:       now.UTC(),
	}, nil
}

// HasParticipant reports whether the user is one of the two parties.
func (c *Conversation) HasParticipant(user UserID) bool {
	return user == c.ParticipantLow || user == c.ParticipantHigh
}

// OtherParticipant returns the counterpart of the given participant.
func (c *Conversation) OtherParticipant(user UserID) UserID {
	if user == c.ParticipantLow {
		return c.ParticipantHigh
	}
	return c.ParticipantLow
}

// ConversationStore persists conversations. Insert must enforce uniqueness of
// the (low, high, listing) triple and surface a lost creation race as
// ErrConversationExists.
type ConversationStore interface {
	Insert(ctx context.Context, conversation *Conversation) error
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	ByTriple(ctx context.Context, low, high UserID, listing ListingID) (*Conversation, error)
	ByParticipant(ctx context.Context, user UserID) ([]Conversation, error)
	Delete(ctx context.Context, id ConversationID) error
}
