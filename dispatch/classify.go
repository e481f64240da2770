package dispatch

import (
	"strings"

	"github.com/syngh-ai/syngh"
)

// Confirmation keywords, matched as substrings of the lower-cased answer.
var (
	runWords  = []string{"run", "execute", "go", "send"}
	editWords = []string{"edit", "open", "fix", "micro"}
	skipWords = []string{"skip", "nah", "no", "leave"}
)

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ClassifyCommand maps an answer to a raw-command prompt onto run or skip.
func ClassifyCommand(input string) syngh.Action {
	if containsAny(strings.ToLower(strings.TrimSpace(input)), runWords) {
		return syngh.ActionRun
	}
	return syngh.ActionSkip
}

// ClassifyFile maps an answer to a file prompt onto run, edit or skip.
// Answers matching no keyword fall back to the model's suggested action.
// Run words win over edit words, and edit words over skip words.
func ClassifyFile(input string, suggested syngh.Action) syngh.Action {
	s := strings.ToLower(strings.TrimSpace(input))
	switch {
	case containsAny(s, runWords):
		return syngh.ActionRun
	case containsAny(s, editWords):
		return syngh.ActionEdit
	case containsAny(s, skipWords):
		return syngh.ActionSkip
	default:
		return suggested.Resolved()
	}
}
