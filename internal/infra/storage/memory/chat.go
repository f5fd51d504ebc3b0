package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domainchat "rentline/internal/domain/chat"
)

// ConversationStore is an in-memory conversation repository used by tests
// and the fixture-driven demo mode. Uniqueness of the canonical triple is
// enforced under the mutex, mirroring what the unique index does in Mongo.
type ConversationStore struct {
	mu    sync.RWMutex
	items map[domainchat.ConversationID]domainchat.Conversation
}

// NewConversationStore builds an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{items: make(map[domainchat.ConversationID]domainchat.Conversation)}
}

func (s *ConversationStore) Insert(ctx context.Context, conversation *domainchat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.ParticipantLow == conversation.ParticipantLow &&
			existing.ParticipantHigh == conversation.ParticipantHigh &&
			existing.ListingID == conversation.ListingID {
			return domainchat.ErrConversationExists
		}
	}
	if _, ok := s.items[conversation.ID]; ok {
		return domainchat.ErrConversationExists
	}
	s.items[conversation.ID] = *conversation
	return nil
}

func (s *ConversationStore) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.items[id]
	if !ok {
		return nil, domainchat.ErrNotFound
	}
	out := conv
	return &out, nil
}

func (s *ConversationStore) ByTriple(ctx context.Context, low, high domainchat.UserID, listing domainchat.ListingID) (*domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conv := range s.items {
		if conv.ParticipantLow == low && conv.ParticipantHigh == high && conv.ListingID == listing {
			out := conv
			return &out, nil
		}
	}
	return nil, domainchat.ErrNotFound
}

func (s *ConversationStore) ByParticipant(ctx context.Context, user domainchat.UserID) ([]domainchat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainchat.Conversation, 0)
	for _, conv := range s.items {
		if conv.HasParticipant(user) {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ConversationStore) Delete(ctx context.Context, id domainchat.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domainchat.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// MessageStore is the in-memory message log companion of ConversationStore.
type MessageStore struct {
	mu    sync.RWMutex
	items map[domainchat.ConversationID][]domainchat.Message
	seq   uint64
}

// NewMessageStore builds an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{items: make(map[domainchat.ConversationID][]domainchat.Message)}
}

func (s *MessageStore) Insert(ctx context.Context, message *domainchat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message.ID == "" {
		s.seq++
		// Zero-padded so lexical order matches creation order.
		message.ID = domainchat.MessageID(fmt.Sprintf("%016d", s.seq))
	}
	s.items[message.ConversationID] = append(s.items[message.ConversationID], *message)
	return nil
}

func (s *MessageStore) Page(ctx context.Context, conversation domainchat.ConversationID, skip, take int) ([]domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.ordered(conversation)
	if skip >= len(ordered) {
		return []domainchat.Message{}, nil
	}
	end := skip + take
	if end > len(ordered) {
		end = len(ordered)
	}
	return append([]domainchat.Message(nil), ordered[skip:end]...), nil
}

func (s *MessageStore) Recent(ctx context.Context, conversation domainchat.ConversationID, limit int) ([]domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.ordered(conversation)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return append([]domainchat.Message(nil), ordered...), nil
}

func (s *MessageStore) Count(ctx context.Context, conversation domainchat.ConversationID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items[conversation])), nil
}

func (s *MessageStore) Last(ctx context.Context, conversation domainchat.ConversationID) (*domainchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.ordered(conversation)
	if len(ordered) == 0 {
		return nil, nil
	}
	out := ordered[len(ordered)-1]
	return &out, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, conversations []domainchat.ConversationID, reader domainchat.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var marked int64
	for _, id := range conversations {
		log := s.items[id]
		for i := range log {
			if log[i].SenderID != reader && !log[i].Read {
				log[i].Read = true
				marked++
			}
		}
	}
	return marked, nil
}

func (s *MessageStore) CountUnread(ctx context.Context, conversations []domainchat.ConversationID, reader domainchat.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, id := range conversations {
		for _, msg := range s.items[id] {
			if msg.SenderID != reader && !msg.Read {
				count++
			}
		}
	}
	return count, nil
}

func (s *MessageStore) DeleteByConversation(ctx context.Context, conversation domainchat.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, conversation)
	return nil
}

// ordered returns the conversation log sorted by (CreatedAt, ID). Callers
// must hold the mutex.
func (s *MessageStore) ordered(conversation domainchat.ConversationID) []domainchat.Message {
	log := append([]domainchat.Message(nil), s.items[conversation]...)
	sort.Slice(log, func(i, j int) bool {
		if !log[i].CreatedAt.Equal(log[j].CreatedAt) {
			return log[i].CreatedAt.Before(log[j].CreatedAt)
		}
		return log[i].ID < log[j].ID
	})
	return log
}
