package generate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Stream is a lazy, finite sequence of response fragments read from a
// server-sent-events body. It cannot be restarted.
//
//	for s.Next() {
//		fmt.Print(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	text    string
	err     error
	done    bool
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: body, scanner: scanner}
}

// Next advances to the next non-empty fragment. It returns false when the
// stream is exhausted or failed; Err tells which.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return s.finish(nil)
		}

		var chunk chatCompletionsResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return s.finish(fmt.Errorf("malformed stream chunk: %w", err))
		}
		if chunk.Error != nil {
			return s.finish(fmt.Errorf("API error: %s", chunk.Error.Message))
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			s.text = delta
			return true
		}
	}
	if err := s.scanner.Err(); err != nil {
		return s.finish(fmt.Errorf("stream error: %w", err))
	}
	return s.finish(nil)
}

// Text returns the fragment produced by the last call to Next.
func (s *Stream) Text() string { return s.text }

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error { return s.err }

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

func (s *Stream) finish(err error) bool {
	s.done = true
	s.text = ""
	s.err = err
	s.Close()
	return false
}
