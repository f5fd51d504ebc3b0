package chat

import (
	"context"

	domainchat "rentline/internal/domain/chat"
)

// MarkRead flags the counterpart's unread messages in one conversation as
// read and returns how many rows changed. The store-level filter on sender
// and read state makes the call idempotent and keeps the reader's own
// messages untouched.
func (s *Service) MarkRead(ctx context.Context, caller domainchat.UserID, id domainchat.ConversationID) (int64, error) {
	conv, err := s.requireParticipant(ctx, caller, id)
	if err != nil {
		return 0, err
	}
	marked, err := s.Messages.MarkRead(ctx, []domainchat.ConversationID{conv.ID}, caller)
	if err != nil {
		return 0, s.internal(err, "mark read", "conversation_id", id)
	}
	return marked, nil
}

// MarkAllRead applies MarkRead semantics across every conversation the
// caller participates in, as a single bulk update.
func (s *Service) MarkAllRead(ctx context.Context, caller domainchat.UserID) (int64, error) {
	ids, err := s.participantConversationIDs(ctx, caller)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	marked, err := s.Messages.MarkRead(ctx, ids, caller)
	if err != nil {
		return 0, s.internal(err, "mark all read", "user_id", caller)
	}
	return marked, nil
}

// UnreadCount counts unread messages addressed to the caller across all of
// their conversations. Pure read, no side effects.
func (s *Service) UnreadCount(ctx context.Context, caller domainchat.UserID) (int64, error) {
	ids, err := s.participantConversationIDs(ctx, caller)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	count, err := s.Messages.CountUnread(ctx, ids, caller)
	if err != nil {
		return 0, s.internal(err, "count unread", "user_id", caller)
	}
	return count, nil
}

// UnreadCountIn is UnreadCount restricted to one conversation.
func (s *Service) UnreadCountIn(ctx context.Context, caller domainchat.UserID, id domainchat.ConversationID) (int64, error) {
	conv, err := s.requireParticipant(ctx, caller, id)
	if err != nil {
		return 0, err
	}
	count, err := s.Messages.CountUnread(ctx, []domainchat.ConversationID{conv.ID}, caller)
	if err != nil {
		return 0, s.internal(err, "count unread", "conversation_id", id)
	}
	return count, nil
}

func (s *Service) participantConversationIDs(ctx context.Context, caller domainchat.UserID) ([]domainchat.ConversationID, error) {
	if caller == "" {
		return nil, domainchat.ErrUnauthenticated
	}
	conversations, err := s.Conversations.ByParticipant(ctx, caller)
	if err != nil {
		return nil, s.internal(err, "list conversations", "user_id", caller)
	}
	ids := make([]domainchat.ConversationID, 0, len(conversations))
	for _, conv := range conversations {
		ids = append(ids, conv.ID)
	}
	return ids, nil
}
