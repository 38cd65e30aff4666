package driven

import (
	"context"

	"github.com/music-assist/backend/internal/core/domain"
)

// ConversationStore persists per-conversation turn history.
//
// The store itself is free of locking policy beyond its own internal
// consistency; serialising appends to one conversation is the
// conversation service's job.
type ConversationStore interface {
	// SaveConversation stores a new conversation.
	SaveConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation with its turns in
	// append order. Returns domain.ErrNotFound if it does not exist.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// AppendTurn appends one turn to an existing conversation.
	AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error

	// CountConversations returns the number of stored conversations.
	CountConversations(ctx context.Context) (int, error)
}
