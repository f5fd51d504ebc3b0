package dto

import "time"

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	ID          string       `json:"id"`
	OtherUserID string       `json:"other_user_id"`
	ListingID   string       `json:"listing_id"`
	CreatedAt   time.Time    `json:"created_at"`
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int64        `json:"unread_count"`
}

// ConversationList is the inbox collection, newest activity first.
type ConversationList struct {
	Items []ConversationSummary `json:"items"`
}

// ChatMessage contains a single message payload.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
}

// ConversationDetail is a conversation plus its recent message window.
type ConversationDetail struct {
	ID          string        `json:"id"`
	OtherUserID string        `json:"other_user_id"`
	ListingID   string        `json:"listing_id"`
	CreatedAt   time.Time     `json:"created_at"`
	Messages    []ChatMessage `json:"messages"`
}

// ConversationCreated reports the canonical conversation for a contact
// attempt and whether this call created it.
type ConversationCreated struct {
	ID    string `json:"id"`
	IsNew bool   `json:"is_new"`
}

// ChatMessagePage is an offset page over a conversation's history.
type ChatMessagePage struct {
	Items   []ChatMessage `json:"items"`
	Total   int64         `json:"total"`
	HasMore bool          `json:"has_more"`
}
