// Package memory persists a bounded conversation history across
// invocations. Only completed requests are recorded; an aborted request
// never touches the store.
package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/google/uuid"
)

// Conversation is one completed question/answer exchange.
type Conversation struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Tokens    int       `json:"tokens"`
	Cost      float64   `json:"cost"`
	Mode      string    `json:"mode"` // "normal", "ask", "voice"
}

// Memory is the on-disk document.
type Memory struct {
	Conversations      []Conversation `json:"conversations"`
	TotalConversations int            `json:"total_conversations"`
	TotalCost          float64        `json:"total_cost"`
	LastUpdated        *time.Time     `json:"last_updated"`
}

// Store loads and saves session memory at a fixed path.
type Store struct {
	path             string
	maxConversations int
	logger           *slog.Logger
}

// NewStore creates a store for the given file path. The parent directory
// is created on first save.
func NewStore(path string, maxConversations int, logger *slog.Logger) *Store {
	return &Store{path: path, maxConversations: maxConversations, logger: logger}
}

// Load reads the memory file. A missing, unreadable or corrupted file
// falls back to empty memory; answering the question is never blocked by
// persistence problems.
func (s *Store) Load() *Memory {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not load memory file", "path", s.path, "error", err)
		}
		return &Memory{}
	}

	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("memory file is corrupted, starting fresh", "path", s.path, "error", err)
		return &Memory{}
	}
	return &m
}

// Append adds a completed conversation, evicts the oldest entries past
// the cap and saves. The write is atomic (temp file + rename) so an
// interrupted save cannot corrupt the store.
func (s *Store) Append(m *Memory, conv Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	m.Conversations = append(m.Conversations, conv)
	m.TotalConversations++
	m.TotalCost += conv.Cost

	if len(m.Conversations) > s.maxConversations {
		m.Conversations = m.Conversations[len(m.Conversations)-s.maxConversations:]
	}

	return s.save(m)
}

func (s *Store) save(m *Memory) error {
	now := time.Now()
	m.LastUpdated = &now

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode memory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write memory: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace memory file: %w", err)
	}
	return nil
}

// Clear deletes the memory file.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete memory file: %w", err)
	}
	return nil
}

// ContextItems converts the most recent conversations into transcript
// items seeding a new request. Only the question/answer text survives
// into long-term memory; tool traffic does not.
func ContextItems(m *Memory, limit int) []provider.Item {
	convs := m.Conversations
	if limit >= 0 && len(convs) > limit {
		convs = convs[len(convs)-limit:]
	}

	items := make([]provider.Item, 0, len(convs)*2)
	for _, conv := range convs {
		items = append(items, provider.UserMessage("user", conv.Question))
		items = append(items, provider.UserMessage("assistant", conv.Answer))
	}
	return items
}
