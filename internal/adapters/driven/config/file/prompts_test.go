package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/music-assist/backend/internal/core/ports/driven"
)

func TestNewPromptStore_NoIOInConstructor(t *testing.T) {
	promptDir := filepath.Join(t.TempDir(), "prompts")

	store, err := NewPromptStore(promptDir)
	require.NoError(t, err)
	assert.Equal(t, promptDir, store.Dir())

	// Constructor must not create the directory
	assert.NoDirExists(t, promptDir)
}

func TestPromptStore_LoadCreatesDefaults(t *testing.T) {
	promptDir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(promptDir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Music-Assist")

	assert.FileExists(t, filepath.Join(promptDir, driven.PromptAnswerSystem+".txt"))
	assert.FileExists(t, filepath.Join(promptDir, "README.md"))
}

func TestPromptStore_LoadUserOverride(t *testing.T) {
	promptDir := t.TempDir()
	custom := "Answer briefly and quote the hymn number."
	require.NoError(t, os.WriteFile(
		filepath.Join(promptDir, driven.PromptAnswerSystem+".txt"),
		[]byte(custom+"\n"), 0600,
	))

	store, err := NewPromptStore(promptDir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_LoadUnknownName(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no-such-prompt")
	assert.Error(t, err)
}

func TestPromptStore_Reload(t *testing.T) {
	promptDir := t.TempDir()
	store, err := NewPromptStore(promptDir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)

	// Edit the file behind the cache
	custom := "Changed framing."
	require.NoError(t, os.WriteFile(
		filepath.Join(promptDir, driven.PromptAnswerSystem+".txt"),
		[]byte(custom), 0600,
	))

	// Cached value survives until Reload
	cached, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, custom, fresh)
}
