package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"rentline/internal/app/outbox"
	domainchat "rentline/internal/domain/chat"
	"rentline/internal/domain/shared/events"
)

// DefaultGreeting opens a conversation when the caller sends no text.
const DefaultGreeting = "Hi! Is this still available?"

// recentWindow is how many trailing messages a conversation view includes.
const recentWindow = 50

// Service implements the messaging core: conversation registry, message log,
// read-state tracking and per-operation access checks.
type Service struct {
	Conversations domainchat.ConversationStore
	Messages      domainchat.MessageStore
	Listings      ListingDirectory
	Identity      IdentityGate
	Events        outbox.Outbox
	Encoder       outbox.EventEncoder
	Logger        *slog.Logger

	// Now and NewID exist for tests; nil means real clock and random uuid.
	Now   func() time.Time
	NewID func() string
}

// Summary is one row of a user's conversation list.
type Summary struct {
	Conversation domainchat.Conversation
	Other        domainchat.UserID
	LastMessage  *domainchat.Message
	Unread       int64
}

// Detail is a conversation with its trailing message window.
type Detail struct {
	Conversation domainchat.Conversation
	Other        domainchat.UserID
	Messages     []domainchat.Message
	MarkedRead   int64
}

// MessagePage is an offset page over a conversation's full history.
type MessagePage struct {
	Items   []domainchat.Message
	Total   int64
	HasMore bool
}

// ListConversations returns the caller's conversations ordered by most
// recent activity. Previews and unread counts come from narrow per-thread
// queries; nothing here mutates read state.
func (s *Service) ListConversations(ctx context.Context, caller domainchat.UserID) ([]Summary, error) {
	if caller == "" {
		return nil, domainchat.ErrUnauthenticated
	}
	conversations, err := s.Conversations.ByParticipant(ctx, caller)
	if err != nil {
		return nil, s.internal(err, "list conversations", "user_id", caller)
	}
	summaries := make([]Summary, 0, len(conversations))
	for _, conv := range conversations {
		last, err := s.Messages.Last(ctx, conv.ID)
		if err != nil {
			return nil, s.internal(err, "load last message", "conversation_id", conv.ID)
		}
		unread, err := s.Messages.CountUnread(ctx, []domainchat.ConversationID{conv.ID}, caller)
		if err != nil {
			return nil, s.internal(err, "count unread", "conversation_id", conv.ID)
		}
		summaries = append(summaries, Summary{
			Conversation: conv,
			Other:        conv.OtherParticipant(caller),
			LastMessage:  last,
			Unread:       unread,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaryActivity(summaries[i]), summaryActivity(summaries[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return summaries[i].Conversation.ID < summaries[j].Conversation.ID
	})
	return summaries, nil
}

// GetConversation returns the conversation with its recent message window
// and, as a side effect, marks the other party's messages as read.
func (s *Service) GetConversation(ctx context.Context, caller domainchat.UserID, id domainchat.ConversationID) (Detail, error) {
	conv, err := s.requireParticipant(ctx, caller, id)
	if err != nil {
		return Detail{}, err
	}
	messages, err := s.Messages.Recent(ctx, conv.ID, recentWindow)
	if err != nil {
		return Detail{}, s.internal(err, "load recent messages", "conversation_id", id)
	}
	marked, err := s.Messages.MarkRead(ctx, []domainchat.ConversationID{conv.ID}, caller)
	if err != nil {
		return Detail{}, s.internal(err, "mark read", "conversation_id", id)
	}
	return Detail{
		Conversation: *conv,
		Other:        conv.OtherParticipant(caller),
		Messages:     messages,
		MarkedRead:   marked,
	}, nil
}

// DeleteConversation removes the conversation and its message log. Only a
// participant may delete; outsiders observe NotFound.
func (s *Service) DeleteConversation(ctx context.Context, caller domainchat.UserID, id domainchat.ConversationID) error {
	conv, err := s.requireParticipant(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.Messages.DeleteByConversation(ctx, conv.ID); err != nil {
		return s.internal(err, "delete messages", "conversation_id", id)
	}
	if err := s.Conversations.Delete(ctx, conv.ID); err != nil {
		return s.internal(err, "delete conversation", "conversation_id", id)
	}
	return nil
}

func summaryActivity(s Summary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.Conversation.CreatedAt
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// internal logs the storage failure with its context and returns an opaque
// wrapped error; handlers surface it as a generic internal failure.
func (s *Service) internal(err error, action string, attrs ...any) error {
	if s.Logger != nil {
		s.Logger.Error("chat storage failure", append([]any{"action", action, "error", err}, attrs...)...)
	}
	return fmt.Errorf("chat: %s: %w", action, err)
}

func (s *Service) recordEvents(ctx context.Context, evs ...events.DomainEvent) {
	if err := outbox.RecordDomainEvents(ctx, s.Events, s.Encoder, evs); err != nil && s.Logger != nil {
		s.Logger.Warn("chat event record failed", "error", err)
	}
}
