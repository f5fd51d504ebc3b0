package chat

import "time"

type ConversationCreatedEvent struct {
	ConversationID  ConversationID
	ParticipantLow  UserID
	ParticipantHigh UserID
	ListingID       ListingID
	At              time.Time
}

func (e ConversationCreatedEvent) EventName() string     { return "chat.conversation.created" }
func (e ConversationCreatedEvent) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationCreatedEvent) OccurredAt() time.Time { return e.At }

type MessageSentEvent struct {
	ConversationID ConversationID
	MessageID      MessageID
	SenderID       UserID
	At             time.Time
}

func (e MessageSentEvent) EventName() string     { return "chat.message.sent" }
func (e MessageSentEvent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSentEvent) OccurredAt() time.Time { return e.At }
