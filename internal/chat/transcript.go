package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/brizzai/agency-chat/internal/models"
	"github.com/google/uuid"
)

// FailureText is shown as a bot bubble when a message could not be relayed.
const FailureText = "Sorry, something went wrong processing your message. Please try again."

// Transcript is the ordered list of bubbles shown in the chat. It is not
// safe for concurrent use; interfaces own one per conversation.
type Transcript struct {
	messages []models.ChatMessage
	now      func() time.Time
	newID    func() string
}

func NewTranscript() *Transcript {
	return &Transcript{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (t *Transcript) add(sender models.Sender, text string) models.ChatMessage {
	m := models.ChatMessage{
		ID:        t.newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: t.now(),
	}
	t.messages = append(t.messages, m)
	return m
}

// AddUser appends the trimmed user text.
func (t *Transcript) AddUser(text string) models.ChatMessage {
	return t.add(models.SenderUser, strings.TrimSpace(text))
}

func (t *Transcript) AddBot(text string) models.ChatMessage {
	return t.add(models.SenderBot, text)
}

// AddFailure appends the generic failure bubble.
func (t *Transcript) AddFailure() models.ChatMessage {
	return t.add(models.SenderBot, FailureText)
}

// Merge adds history messages not already present by id and keeps the
// transcript in timestamp order. Messages without a timestamp stay where
// they are relative to each other.
func (t *Transcript) Merge(history []models.ChatMessage) int {
	seen := make(map[string]bool, len(t.messages))
	for _, m := range t.messages {
		seen[m.ID] = true
	}
	added := 0
	for _, m := range history {
		if m.ID != "" && seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		t.messages = append(t.messages, m)
		added++
	}
	if added > 0 {
		sort.SliceStable(t.messages, func(i, j int) bool {
			a, b := t.messages[i].Timestamp, t.messages[j].Timestamp
			if a.IsZero() || b.IsZero() {
				return false
			}
			return a.Before(b)
		})
	}
	return added
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// Reset drops every message, for example after sign-out.
func (t *Transcript) Reset() {
	t.messages = nil
}
