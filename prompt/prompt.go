// Package prompt assembles the ordered message list sent to the model.
//
// Order matters: the system instruction comes first, then remembered turns
// oldest to newest, then any one-shot context, and the live prompt last so
// the model weighs it most.
package prompt

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/syngh-ai/syngh"
	defaults "github.com/syngh-ai/syngh/default"
)

// ErrEmptyPrompt is returned when the user supplied no prompt text.
var ErrEmptyPrompt = errors.New("empty prompt")

// Variant selects which assistant a prompt is built for.
type Variant string

const (
	Codeboss Variant = "codeboss"
	Chat     Variant = "ai"
)

// Normalize joins command-line arguments into the user prompt.
func Normalize(args []string) (string, error) {
	p := strings.TrimSpace(strings.Join(args, " "))
	if p == "" {
		return "", ErrEmptyPrompt
	}
	return p, nil
}

// System returns the system instruction for v. A file named "<variant>.md"
// in dir overrides the embedded default.
func System(v Variant, dir string) string {
	if dir != "" {
		path := filepath.Join(dir, string(v)+".md")
		if data, err := os.ReadFile(path); err == nil {
			if s := strings.TrimSpace(string(data)); s != "" {
				slog.Debug("loaded custom prompt", "path", path)
				return s
			}
		}
	}
	if v == Chat {
		return strings.TrimSpace(defaults.ChatPrompt)
	}
	return strings.TrimSpace(defaults.CodebossPrompt)
}

// CodebossInput is everything the codeboss conversation is built from.
type CodebossInput struct {
	System string
	// Recent records, oldest first.
	Recent []syngh.SessionRecord
	// Related records from semantic recall, nearest first. May be empty.
	Related []syngh.SessionRecord
	// ShellHistory is the tail of the user's shell history, oldest first.
	ShellHistory []string
	Prompt       string
}

// BuildCodeboss returns system, memory, related, context, prompt messages.
func BuildCodeboss(in CodebossInput) []syngh.Message {
	msgs := make([]syngh.Message, 0, len(in.Recent)+len(in.Related)+3)
	msgs = append(msgs, syngh.Message{Role: syngh.RoleSystem, Content: in.System})
	for _, rec := range in.Recent {
		msgs = append(msgs, user(annotate("[memory]", rec)))
	}
	for _, rec := range in.Related {
		msgs = append(msgs, user(annotate("[related]", rec)))
	}
	msgs = append(msgs, user("[context] Last terminal commands:\n"+strings.Join(in.ShellHistory, "\n")))
	msgs = append(msgs, user(in.Prompt))
	return msgs
}

func annotate(tag string, rec syngh.SessionRecord) string {
	return fmt.Sprintf("%s Prompt: %s → %s (%s)", tag, rec.Prompt, rec.Filename, rec.Action)
}

// BuildChat returns the system message, each remembered turn as a
// user/assistant pair, then the prompt.
func BuildChat(system string, turns []syngh.ChatTurn, prompt string) []syngh.Message {
	msgs := make([]syngh.Message, 0, 2*len(turns)+2)
	msgs = append(msgs, syngh.Message{Role: syngh.RoleSystem, Content: system})
	for _, t := range turns {
		msgs = append(msgs,
			user(t.User),
			syngh.Message{Role: syngh.RoleAssistant, Content: t.AI},
		)
	}
	return append(msgs, user(prompt))
}

func user(content string) syngh.Message {
	return syngh.Message{Role: syngh.RoleUser, Content: content}
}
