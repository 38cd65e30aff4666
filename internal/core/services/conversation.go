package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/logger"
)

// ConversationService manages per-conversation turn history.
//
// Appends to one conversation are serialised through a per-ID mutex so
// concurrent exchanges never interleave or lose turns; appends to
// different conversations proceed independently.
type ConversationService struct {
	store driven.ConversationStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConversationService creates a conversation service over the store.
func NewConversationService(store driven.ConversationStore) *ConversationService {
	return &ConversationService{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// GetOrCreate resolves a conversation by ID. An empty ID always
// creates a fresh conversation. An unknown non-empty ID also starts
// fresh under a newly generated ID, so client-side ID corruption
// degrades gracefully instead of failing the request.
func (s *ConversationService) GetOrCreate(ctx context.Context, id string) (*domain.Conversation, error) {
	if id != "" {
		conv, err := s.store.GetConversation(ctx, id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		logger.Debug("Unknown conversation id %s, starting fresh", id)
	}

	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// AppendExchange appends turns to a conversation as one unit. The
// per-conversation lock is held across all of them, so a user turn and
// its assistant reply can never be split by a concurrent exchange.
func (s *ConversationService) AppendExchange(ctx context.Context, conversationID string, turns ...domain.Turn) error {
	lock := s.lock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	for _, turn := range turns {
		if err := s.store.AppendTurn(ctx, conversationID, turn); err != nil {
			return fmt.Errorf("append %s turn: %w", turn.Role, err)
		}
	}
	return nil
}

// History returns the most recent limit turns in append order.
// A non-positive limit returns all turns.
func (s *ConversationService) History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	turns := conv.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// lock returns the mutex serialising appends for one conversation.
func (s *ConversationService) lock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}
