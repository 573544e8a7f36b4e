package devserver

import (
	"sync"
	"time"

	"github.com/brizzai/agency-chat/internal/models"
	"github.com/google/uuid"
)

// HistoryStore keeps every user's conversation in memory.
type HistoryStore struct {
	now func() time.Time

	mu       sync.RWMutex
	messages map[string][]models.ChatMessage
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		now:      func() time.Time { return time.Now().UTC() },
		messages: make(map[string][]models.ChatMessage),
	}
}

// Append records a message for userID and returns it with id and timestamp set.
func (s *HistoryStore) Append(userID string, sender models.Sender, text string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[userID] = append(s.messages[userID], msg)
	return msg
}

// Recent returns up to limit of the newest messages, oldest first.
func (s *HistoryStore) Recent(userID string, limit int) []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]models.ChatMessage, len(all))
	copy(out, all)
	return out
}
