package chat

import (
	"context"
	"strings"
	"time"
)

// MaxTextLength is the longest accepted message body after trimming.
const MaxTextLength = 2000

type MessageID string

// Message is one entry of a conversation's append-only log. Total order
// within a conversation is (CreatedAt, ID); message ids are creation-ordered.
// Read flips false->true once, only on behalf of the non-sender.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       UserID
	Text           string
	CreatedAt      time.Time
	Read           bool
}

// NormalizeText trims surrounding whitespace and enforces the 1..2000
// character bound. Length is counted in runes, not bytes.
func NormalizeText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrInvalidMessage
	}
	if len([]rune(text)) > MaxTextLength {
		return "", ErrInvalidMessage
	}
	return text, nil
}

// MessageStore persists messages. Read-marking and unread counting are bulk
// operations filtered on sender != reader so a reader can never affect the
// read state of their own messages.
type MessageStore interface {
	// Insert appends the message and assigns a creation-ordered ID when the
	// message carries none.
	Insert(ctx context.Context, message *Message) error
	// Page returns up to take messages in (CreatedAt, ID) ascending order,
	// skipping the first skip entries.
	Page(ctx context.Context, conversation ConversationID, skip, take int) ([]Message, error)
	// Recent returns the newest limit messages in chronological order.
	Recent(ctx context.Context, conversation ConversationID, limit int) ([]Message, error)
	Count(ctx context.Context, conversation ConversationID) (int64, error)
	// Last returns the newest message or nil when the log is empty.
	Last(ctx context.Context, conversation ConversationID) (*Message, error)
	// MarkRead sets Read on unread messages not sent by reader across the
	// given conversations in one conditional bulk update and returns the
	// number of rows mutated.
	MarkRead(ctx context.Context, conversations []ConversationID, reader UserID) (int64, error)
	// CountUnread counts unread messages not sent by reader across the given
	// conversations.
	CountUnread(ctx context.Context, conversations []ConversationID, reader UserID) (int64, error)
	DeleteByConversation(ctx context.Context, conversation ConversationID) error
}
