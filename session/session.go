package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clai-dev/clai/errors"
	"github.com/google/uuid"
)

const maxTitleLen = 60

// ToolCall is one model-requested invocation of a named capability.
// Arguments is the raw argument text as emitted by the model; it is expected
// to parse as a JSON object but is not validated until invocation time.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in the conversation transcript. A "tool" message's
// ToolCallID references a ToolCall emitted by the immediately preceding
// assistant message.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Session is the persisted conversation record.
type Session struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	WorkingDirectory string    `json:"working_directory"`
	Messages         []Message `json:"messages"`

	path string
}

// New creates a new session named after its id, rooted in the current
// working directory.
func New(name string) (*Session, error) {
	if name == "" {
		name = uuid.NewString()
	}
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	now := time.Now()
	return &Session{
		ID:               name,
		CreatedAt:        now,
		UpdatedAt:        now,
		WorkingDirectory: wd,
		Messages:         []Message{},
		path:             path,
	}, nil
}

// Load reads an existing session from disk.
func Load(name string) (*Session, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read session file %s", path)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "could not parse session file %s", path)
	}
	s.path = path
	return &s, nil
}

// Save writes the current session state to disk.
func (s *Session) Save() error {
	s.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize session")
	}
	return os.WriteFile(s.path, data, 0644)
}

// AddMessage appends a message to the session history. The first user
// message fixes the session title; it never changes afterwards.
func (s *Session) AddMessage(msg Message) {
	if s.Title == "" && msg.Role == "user" {
		s.Title = deriveTitle(msg.Content)
	}
	s.Messages = append(s.Messages, msg)
}

// Truncate replaces the message list. Used by compaction; the caller is
// responsible for preserving the leading system message.
func (s *Session) Truncate(msgs []Message) {
	s.Messages = msgs
}

// Clear drops the conversation, keeping only a leading system message. It
// reports whether anything was removed.
func (s *Session) Clear() bool {
	if len(s.Messages) == 0 {
		return false
	}
	if s.Messages[0].Role == "system" {
		if len(s.Messages) == 1 {
			return false
		}
		s.Messages = s.Messages[:1]
		return true
	}
	s.Messages = nil
	return true
}

func deriveTitle(content string) string {
	title := strings.TrimSpace(content)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	return title
}

func sessionPath(name string) (string, error) {
	sessionDir := filepath.Join(".clai", "sessions")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return "", errors.Wrapf(err, "could not create session directory")
	}
	return filepath.Join(sessionDir, name+".json"), nil
}
