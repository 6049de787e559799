package memory

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxConversations int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(path, maxConversations, logger)
}

func conv(question, answer string) Conversation {
	return Conversation{
		Timestamp: time.Now(),
		Question:  question,
		Answer:    answer,
		Tokens:    100,
		Cost:      0.001,
		Mode:      "normal",
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t, 50)
	m := s.Load()
	assert.Empty(t, m.Conversations)
	assert.Zero(t, m.TotalConversations)
}

func TestLoadCorruptFileFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewStore(path, 50, logger)

	m := s.Load()
	assert.Empty(t, m.Conversations)
}

func TestAppendPersistsAcrossLoads(t *testing.T) {
	s := newTestStore(t, 50)
	m := s.Load()

	require.NoError(t, s.Append(m, conv("what is go?", "a language")))
	require.NoError(t, s.Append(m, conv("who made it?", "google")))

	reloaded := s.Load()
	require.Len(t, reloaded.Conversations, 2)
	assert.Equal(t, "what is go?", reloaded.Conversations[0].Question)
	assert.Equal(t, 2, reloaded.TotalConversations)
	assert.InDelta(t, 0.002, reloaded.TotalCost, 1e-9)
	assert.NotEmpty(t, reloaded.Conversations[0].ID)
	assert.NotNil(t, reloaded.LastUpdated)
}

func TestAppendEvictsOldestPastCap(t *testing.T) {
	s := newTestStore(t, 3)
	m := s.Load()

	for _, q := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, s.Append(m, conv(q, "answer")))
	}

	reloaded := s.Load()
	require.Len(t, reloaded.Conversations, 3)
	assert.Equal(t, "three", reloaded.Conversations[0].Question)
	assert.Equal(t, "five", reloaded.Conversations[2].Question)
	// The running totals keep counting past the cap.
	assert.Equal(t, 5, reloaded.TotalConversations)
}

func TestClearDeletesFile(t *testing.T) {
	s := newTestStore(t, 50)
	m := s.Load()
	require.NoError(t, s.Append(m, conv("q", "a")))

	require.NoError(t, s.Clear())

	assert.Empty(t, s.Load().Conversations)
	// Clearing an already-missing file is not an error.
	require.NoError(t, s.Clear())
}

func TestContextItems(t *testing.T) {
	m := &Memory{Conversations: []Conversation{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
	}}

	items := ContextItems(m, 2)

	require.Len(t, items, 4)
	assert.Equal(t, "user", items[0].Role)
	assert.Equal(t, "q2", items[0].Text)
	assert.Equal(t, "assistant", items[1].Role)
	assert.Equal(t, "a2", items[1].Text)
	assert.Equal(t, "a3", items[3].Text)
}

func TestContextItemsEmptyMemory(t *testing.T) {
	assert.Empty(t, ContextItems(&Memory{}, 10))
}
