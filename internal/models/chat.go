package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/brizzai/agency-chat/internal/logger"
	"go.uber.org/zap"
)

// unixMilliThreshold separates unix seconds from milliseconds: 1e11 seconds
// is past the year 5000, 1e11 milliseconds is 1973.
const unixMilliThreshold = 1e11

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is one bubble of the conversation. On the wire the text is
// carried in the "message" field.
type ChatMessage struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"message" yaml:"text"`
	Sender    Sender    `json:"sender" yaml:"sender"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp accepts the formats chat backends commonly emit,
// including zone-less ISO 8601 (read as UTC) and unix seconds or
// milliseconds.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnix(n, s)
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func fromUnix(n float64, raw string) (time.Time, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
	}
	nanos := n * float64(time.Second)
	if n >= unixMilliThreshold {
		nanos = n * float64(time.Millisecond)
	}
	if nanos >= math.MaxInt64 {
		return time.Time{}, fmt.Errorf("timestamp %q out of range", raw)
	}
	return time.Unix(0, int64(nanos)).UTC(), nil
}

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Message   string          `json:"message"`
		Text      string          `json:"text"`
		Sender    Sender          `json:"sender"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.ID = rawScalar(raw.ID)
	m.Text = raw.Message
	if m.Text == "" {
		m.Text = raw.Text
	}
	m.Sender = raw.Sender

	// a bad timestamp costs the message its time, not the message
	ts, err := ParseTimestamp(rawScalar(raw.Timestamp))
	if err != nil {
		logger.Warn("Ignoring chat message timestamp", zap.String("id", m.ID), zap.Error(err))
	}
	m.Timestamp = ts
	return nil
}

// rawScalar renders a JSON string or number as a plain string.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ChatRequest is the body posted to the chatbot endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReply is the chatbot answer: the reply text plus whatever else the
// backend chose to send along.
type ChatReply struct {
	Message string
	Extra   map[string]any
}

func (r *ChatReply) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if msg, ok := fields["message"].(string); ok {
		r.Message = msg
	}
	delete(fields, "message")
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

func (r ChatReply) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(r.Extra)+1)
	for k, v := range r.Extra {
		fields[k] = v
	}
	fields["message"] = r.Message
	return json.Marshal(fields)
}

// HistoryResponse is returned by the chat history endpoint.
type HistoryResponse struct {
	Messages []ChatMessage `json:"messages"`
}
