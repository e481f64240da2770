// Package task turns raw codeboss model output into a validated Descriptor.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/syngh-ai/syngh"
)

// DefaultPurpose is used when the model leaves purpose out.
const DefaultPurpose = "No purpose given."

var (
	// ErrNoPayload is returned when the output contains no {...} span.
	ErrNoPayload = errors.New("no JSON object in model output")
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")
)

var reReasoning = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Descriptor is a generated task. An empty Filename means Code is a raw
// shell command, whatever Action says.
type Descriptor struct {
	Filename string
	Language string
	Purpose  string
	Action   syngh.Action
	Code     string
}

// IsCommand reports whether the task is a raw shell command.
func (d *Descriptor) IsCommand() bool { return d.Filename == "" }

// ParseError describes model output that could not be used. Raw is the
// candidate payload, or the stripped output when no payload was found.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return "bad task JSON: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// StripReasoning removes every reasoning span, including multi-line ones,
// and trims the result.
func StripReasoning(s string) string {
	return strings.TrimSpace(reReasoning.ReplaceAllString(s, ""))
}

// ExtractPayload returns the text from the first '{' through the last '}'.
func ExtractPayload(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoPayload
	}
	return s[start : end+1], nil
}

// wireDescriptor uses pointers to tell absent fields from empty ones.
type wireDescriptor struct {
	Filename *string `json:"filename"`
	Language *string `json:"language"`
	Purpose  *string `json:"purpose"`
	Action   *string `json:"action"`
	Code     *string `json:"code"`
}

// Parse extracts and validates the descriptor in raw model output.
// Every failure is a *ParseError.
func Parse(raw string) (*Descriptor, error) {
	stripped := StripReasoning(raw)
	payload, err := ExtractPayload(stripped)
	if err != nil {
		return nil, &ParseError{Raw: stripped, Err: err}
	}

	var w wireDescriptor
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, &ParseError{Raw: payload, Err: err}
	}

	switch {
	case w.Filename == nil:
		return nil, &ParseError{Raw: payload, Err: fmt.Errorf("%w: filename", ErrMissingField)}
	case w.Action == nil:
		return nil, &ParseError{Raw: payload, Err: fmt.Errorf("%w: action", ErrMissingField)}
	case w.Code == nil || strings.TrimSpace(*w.Code) == "":
		return nil, &ParseError{Raw: payload, Err: fmt.Errorf("%w: code", ErrMissingField)}
	}

	d := &Descriptor{
		Filename: strings.TrimSpace(*w.Filename),
		Action:   normalizeAction(*w.Action),
		Code:     *w.Code,
		Purpose:  DefaultPurpose,
	}
	if w.Language != nil {
		d.Language = *w.Language
	}
	if w.Purpose != nil && strings.TrimSpace(*w.Purpose) != "" {
		d.Purpose = *w.Purpose
	}
	return d, nil
}

// normalizeAction lower-cases the declared action. Values outside
// run/edit/save become save so the user's answer decides.
func normalizeAction(s string) syngh.Action {
	switch a := syngh.Action(strings.ToLower(strings.TrimSpace(s))); a {
	case syngh.ActionRun, syngh.ActionEdit, syngh.ActionSave:
		return a
	default:
		return syngh.ActionSave
	}
}
