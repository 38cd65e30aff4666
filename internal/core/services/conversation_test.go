package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/music-assist/backend/internal/adapters/driven/storage/memory"
	"github.com/music-assist/backend/internal/core/domain"
)

func TestConversationService_GetOrCreate_Empty(t *testing.T) {
	svc := NewConversationService(storagemem.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.False(t, conv.CreatedAt.IsZero())

	// The fresh conversation is persisted
	again, err := svc.GetOrCreate(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
}

func TestConversationService_GetOrCreate_UnknownIDStartsFresh(t *testing.T) {
	svc := NewConversationService(storagemem.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, "not-a-known-id")
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-known-id", conv.ID)
}

func TestConversationService_GetOrCreate_DistinctIDs(t *testing.T) {
	svc := NewConversationService(storagemem.NewConversationStore())
	ctx := context.Background()

	a, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	b, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestConversationService_AppendExchange(t *testing.T) {
	store := storagemem.NewConversationStore()
	svc := NewConversationService(store)
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	now := time.Now().UTC()
	err = svc.AppendExchange(ctx, conv.ID,
		domain.Turn{Role: domain.RoleUser, Text: "question", Timestamp: now},
		domain.Turn{Role: domain.RoleAssistant, Text: "answer", Timestamp: now.Add(time.Microsecond)},
	)
	require.NoError(t, err)

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, domain.RoleUser, got.Turns[0].Role)
	assert.Equal(t, domain.RoleAssistant, got.Turns[1].Role)
}

func TestConversationService_ConcurrentExchangesNeverInterleave(t *testing.T) {
	store := storagemem.NewConversationStore()
	svc := NewConversationService(store)
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = svc.AppendExchange(ctx, conv.ID,
				domain.Turn{Role: domain.RoleUser, Text: fmt.Sprintf("q%d", i)},
				domain.Turn{Role: domain.RoleAssistant, Text: fmt.Sprintf("a%d", i)},
			)
		}(i)
	}
	wg.Wait()

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Turns, 2*n)

	// Each user turn is immediately followed by its assistant reply
	for i := 0; i < len(got.Turns); i += 2 {
		assert.Equal(t, domain.RoleUser, got.Turns[i].Role)
		assert.Equal(t, domain.RoleAssistant, got.Turns[i+1].Role)
		assert.Equal(t, got.Turns[i].Text[1:], got.Turns[i+1].Text[1:])
	}
}

func TestConversationService_History(t *testing.T) {
	store := storagemem.NewConversationStore()
	svc := NewConversationService(store)
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		require.NoError(t, svc.AppendExchange(ctx, conv.ID,
			domain.Turn{Role: domain.RoleUser, Text: fmt.Sprintf("turn-%d", i)},
		))
	}

	recent, err := svc.History(ctx, conv.ID, 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, "turn-2", recent[0].Text)
	assert.Equal(t, "turn-5", recent[3].Text)

	all, err := svc.History(ctx, conv.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestConversationService_History_UnknownConversation(t *testing.T) {
	svc := NewConversationService(storagemem.NewConversationStore())

	_, err := svc.History(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
