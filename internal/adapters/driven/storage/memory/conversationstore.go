package memory

import (
	"context"
	"sync"

	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]domain.Conversation),
	}
}

// SaveConversation stores a conversation. Existing conversations are
// left untouched so a repeated save never drops recorded turns.
func (s *ConversationStore) SaveConversation(_ context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conv.ID]; ok {
		return nil
	}
	stored := *conv
	stored.Turns = append([]domain.Turn(nil), conv.Turns...)
	s.conversations[conv.ID] = stored
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *ConversationStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := conv
	out.Turns = append([]domain.Turn(nil), conv.Turns...)
	return &out, nil
}

// AppendTurn appends one turn to an existing conversation.
func (s *ConversationStore) AppendTurn(_ context.Context, conversationID string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return domain.ErrNotFound
	}
	conv.Turns = append(conv.Turns, turn)
	s.conversations[conversationID] = conv
	return nil
}

// CountConversations returns the number of stored conversations.
func (s *ConversationStore) CountConversations(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations), nil
}
