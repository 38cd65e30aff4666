package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/music-assist/backend/internal/core/domain"
)

func TestNewConversationStore(t *testing.T) {
	store := NewConversationStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.conversations)
}

func TestConversationStore_SaveAndGet(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	conv := &domain.Conversation{
		ID:        "conv-1",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveConversation(ctx, conv))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got.ID)
	assert.Empty(t, got.Turns)
}

func TestConversationStore_GetNotFound(t *testing.T) {
	store := NewConversationStore()
	_, err := store.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_SaveDoesNotDropTurns(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	conv := &domain.Conversation{ID: "conv-1", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveConversation(ctx, conv))
	require.NoError(t, store.AppendTurn(ctx, "conv-1", domain.Turn{
		Role: domain.RoleUser,
		Text: "hello",
	}))

	// Saving the same conversation again must not erase appended turns
	require.NoError(t, store.SaveConversation(ctx, conv))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 1)
}

func TestConversationStore_AppendTurn(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	require.NoError(t, store.SaveConversation(ctx, &domain.Conversation{ID: "conv-1"}))

	require.NoError(t, store.AppendTurn(ctx, "conv-1", domain.Turn{
		Role: domain.RoleUser,
		Text: "Which hymns are approved for sacrament meeting?",
	}))
	require.NoError(t, store.AppendTurn(ctx, "conv-1", domain.Turn{
		Role: domain.RoleAssistant,
		Text: "Hymns from the official hymnbook are approved [1].",
		Sources: []domain.Source{
			{Title: "Music Policy", URL: "https://example.org/policy/music"},
		},
	}))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, domain.RoleUser, got.Turns[0].Role)
	assert.Equal(t, domain.RoleAssistant, got.Turns[1].Role)
	require.Len(t, got.Turns[1].Sources, 1)
	assert.Equal(t, "Music Policy", got.Turns[1].Sources[0].Title)
}

func TestConversationStore_AppendTurn_UnknownConversation(t *testing.T) {
	store := NewConversationStore()
	err := store.AppendTurn(context.Background(), "missing", domain.Turn{Role: domain.RoleUser, Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_ReturnedTurnsAreACopy(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	require.NoError(t, store.SaveConversation(ctx, &domain.Conversation{ID: "conv-1"}))
	require.NoError(t, store.AppendTurn(ctx, "conv-1", domain.Turn{Role: domain.RoleUser, Text: "original"}))

	got, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	got.Turns[0].Text = "mutated"

	again, err := store.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Turns[0].Text)
}

func TestConversationStore_Count(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	require.NoError(t, store.SaveConversation(ctx, &domain.Conversation{ID: "conv-1"}))
	require.NoError(t, store.SaveConversation(ctx, &domain.Conversation{ID: "conv-2"}))

	n, err := store.CountConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
