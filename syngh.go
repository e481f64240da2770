// Package syngh defines the records shared by the codeboss and ai assistants.
// Session records and chat turns are persisted as JSON lines, one per invocation.
package syngh

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies the sender of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the ordered conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Action is what happens to a generated task once the user has answered.
type Action string

const (
	ActionRun  Action = "run"
	ActionEdit Action = "edit"
	ActionSkip Action = "skip"
	// ActionSave only appears in model output; it resolves to ActionSkip.
	ActionSave Action = "save"
)

// Resolved maps the model-only "save" action onto skip.
func (a Action) Resolved() Action {
	switch a {
	case ActionRun, ActionEdit:
		return a
	default:
		return ActionSkip
	}
}

// legacyTimestampLayout is the zone-less form written by earlier versions
// of the assistants (always UTC).
const legacyTimestampLayout = "2006-01-02T15:04:05.999999"

// Timestamp is a UTC instant encoded as ISO-8601.
type Timestamp time.Time

// Now returns the current time as a UTC Timestamp.
func Now() Timestamp {
	return Timestamp(time.Now().UTC())
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = Timestamp(parsed.UTC())
		return nil
	}
	parsed, err := time.ParseInLocation(legacyTimestampLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	*t = Timestamp(parsed)
	return nil
}

// SessionRecord is appended once per codeboss invocation.
type SessionRecord struct {
	Timestamp Timestamp `json:"timestamp"`
	Prompt    string    `json:"prompt"`
	// Filename is empty when the task was a raw shell command.
	Filename string `json:"filename"`
	// Action is the resolved action, not necessarily the one the model suggested.
	Action Action `json:"action"`
	Code   string `json:"code"`
}

// ChatTurn is appended once per ai invocation.
type ChatTurn struct {
	Timestamp Timestamp `json:"timestamp"`
	User      string    `json:"user"`
	// AI is the raw model response, reasoning span included.
	AI string `json:"ai"`
}
