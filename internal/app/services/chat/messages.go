package chat

import (
	"context"

	domainchat "rentline/internal/domain/chat"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Send appends a message to the conversation's log. The caller must be a
// participant; the privileged-party exclusion is re-checked so a role change
// after conversation creation cannot smuggle the support identity in.
func (s *Service) Send(ctx context.Context, caller domainchat.UserID, id domainchat.ConversationID, text string) (*domainchat.Message, error) {
	normalized, err := domainchat.NormalizeText(text)
	if err != nil {
		return nil, err
	}
	conv, err := s.requireParticipant(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	privileged, err := s.Identity.IsPrivileged(ctx, caller)
	if err != nil {
		return nil, s.internal(err, "resolve privileged flag", "user_id", caller)
	}
	if privileged {
		return nil, domainchat.ErrPrivilegedParty
	}
	message := &domainchat.Message{
		ConversationID: conv.ID,
		SenderID:       caller,
		Text:           normalized,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.Messages.Insert(ctx, message); err != nil {
		return nil, s.internal(err, "append message", "conversation_id", id)
	}
	s.recordEvents(ctx, domainchat.MessageSentEvent{
		ConversationID: conv.ID,
		MessageID:      message.ID,
		SenderID:       caller,
		At:             message.CreatedAt,
	})
	return message, nil
}

// Page returns an offset page over the full history in chronological order.
// HasMore is computed against the total count taken in the same request.
func (s *Service) Page(ctx context.Context, caller domainchat.UserID, id domainchat.ConversationID, skip, take int) (MessagePage, error) {
	conv, err := s.requireParticipant(ctx, caller, id)
	if err != nil {
		return MessagePage{}, err
	}
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = defaultPageSize
	}
	if take > maxPageSize {
		take = maxPageSize
	}
	total, err := s.Messages.Count(ctx, conv.ID)
	if err != nil {
		return MessagePage{}, s.internal(err, "count messages", "conversation_id", id)
	}
	items, err := s.Messages.Page(ctx, conv.ID, skip, take)
	if err != nil {
		return MessagePage{}, s.internal(err, "page messages", "conversation_id", id)
	}
	return MessagePage{
		Items:   items,
		Total:   total,
		HasMore: int64(skip+take) < total,
	}, nil
}
