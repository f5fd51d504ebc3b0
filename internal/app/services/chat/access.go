package chat

import (
	"context"
	"errors"

	domainchat "rentline/internal/domain/chat"
)

// requireParticipant loads the conversation and checks the caller is one of
// its two parties. A missing conversation and a non-participant caller both
// come back as ErrNotFound so lookups never confirm existence to outsiders.
func (s *Service) requireParticipant(ctx context.Context, caller domainchat.UserID, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	if caller == "" {
		return nil, domainchat.ErrUnauthenticated
	}
	if id == "" {
		return nil, domainchat.ErrNotFound
	}
	conv, err := s.Conversations.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainchat.ErrNotFound) {
			return nil, domainchat.ErrNotFound
		}
		return nil, s.internal(err, "load conversation", "conversation_id", id)
	}
	if !conv.HasParticipant(caller) {
		return nil, domainchat.ErrNotFound
	}
	return conv, nil
}
