package chat

import (
	"context"
	"errors"
	"strings"

	domainchat "rentline/internal/domain/chat"
)

// GetOrCreate resolves the caller, counterpart and listing to the single
// canonical conversation, creating it on first contact. The returned flag is
// true only for the call that created the row. Repeat calls are idempotent
// and never append another opening message.
func (s *Service) GetOrCreate(ctx context.Context, caller, other domainchat.UserID, listing domainchat.ListingID, initialText string) (*domainchat.Conversation, bool, error) {
	if caller == "" {
		return nil, false, domainchat.ErrUnauthenticated
	}
	if caller == other || other == "" {
		return nil, false, domainchat.ErrSelfConversation
	}
	opening := DefaultGreeting
	if strings.TrimSpace(initialText) != "" {
		normalized, err := domainchat.NormalizeText(initialText)
		if err != nil {
			return nil, false, err
		}
		opening = normalized
	}
	for _, party := range []domainchat.UserID{caller, other} {
		privileged, err := s.Identity.IsPrivileged(ctx, party)
		if err != nil {
			return nil, false, s.internal(err, "resolve privileged flag", "user_id", party)
		}
		if privileged {
			return nil, false, domainchat.ErrPrivilegedParty
		}
	}
	owner, err := s.Listings.OwnerOf(ctx, listing)
	if err != nil {
		if errors.Is(err, domainchat.ErrListingNotFound) {
			return nil, false, domainchat.ErrListingNotFound
		}
		return nil, false, s.internal(err, "resolve listing owner", "listing_id", listing)
	}
	if owner == caller {
		return nil, false, domainchat.ErrOwnListing
	}

	low, high := domainchat.CanonicalPair(caller, other)
	existing, err := s.Conversations.ByTriple(ctx, low, high, listing)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domainchat.ErrNotFound) {
		return nil, false, s.internal(err, "lookup conversation", "listing_id", listing)
	}

	conv, err := domainchat.NewConversation(domainchat.ConversationID(s.newID()), caller, other, listing, s.now())
	if err != nil {
		return nil, false, err
	}
	if err := s.Conversations.Insert(ctx, conv); err != nil {
		if errors.Is(err, domainchat.ErrConversationExists) {
			// Lost the creation race; the surviving row is the answer.
			existing, lookupErr := s.Conversations.ByTriple(ctx, low, high, listing)
			if lookupErr != nil {
				return nil, false, s.internal(lookupErr, "lookup conversation after race", "listing_id", listing)
			}
			return existing, false, nil
		}
		return nil, false, s.internal(err, "create conversation", "listing_id", listing)
	}
	if s.Logger != nil {
		s.Logger.Info("conversation created", "conversation_id", conv.ID, "listing_id", listing)
	}
	s.recordEvents(ctx, domainchat.ConversationCreatedEvent{
		ConversationID:  conv.ID,
		ParticipantLow:  conv.ParticipantLow,
		ParticipantHigh: conv.ParticipantHigh,
		ListingID:       conv.ListingID,
		At:              conv.CreatedAt,
	})

	message := &domainchat.Message{
		ConversationID: conv.ID,
		SenderID:       caller,
		Text:           opening,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.Messages.Insert(ctx, message); err != nil {
		// The conversation row stays valid and retrievable; the caller gets
		// an error instead of a silently missing first message.
		return nil, false, s.internal(err, "append opening message", "conversation_id", conv.ID)
	}
	s.recordEvents(ctx, domainchat.MessageSentEvent{
		ConversationID: conv.ID,
		MessageID:      message.ID,
		SenderID:       caller,
		At:             message.CreatedAt,
	})
	return conv, true, nil
}
