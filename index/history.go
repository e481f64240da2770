// Package index reads the user's shell history and past assistant sessions
// and turns them into redacted, model-ready context.
package index

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// History reads recent commands from a shell history file.
type History struct {
	path string // single most-recently-modified history file
}

// NewHistory resolves the history file to read from.
func NewHistory() *History {
	return &History{path: resolveHistoryPath()}
}

// NewHistoryAt reads from an explicit history file.
func NewHistoryAt(path string) *History {
	return &History{path: path}
}

// Path returns the resolved history file, or "" when none exists.
func (h *History) Path() string { return h.path }

// historyCandidates lists the files a shell may be writing history to,
// $HISTFILE first.
func historyCandidates() []string {
	var paths []string
	if hf := os.Getenv("HISTFILE"); hf != "" {
		paths = append(paths, hf)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".zsh_history"),
			filepath.Join(home, ".bash_history"),
		)
	}
	return paths
}

// resolveHistoryPath returns the most recently written candidate, or "".
func resolveHistoryPath() string {
	var newest string
	var newestMod time.Time
	for _, path := range historyCandidates() {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if mod := info.ModTime(); newest == "" || mod.After(newestMod) {
			newest, newestMod = path, mod
		}
	}
	return newest
}

// RecentCommands returns the last n commands, oldest first, with secrets
// redacted. Any read failure yields nil.
func (h *History) RecentCommands(n int) []string {
	if h.path == "" || n <= 0 {
		return nil
	}
	cmds, err := tailCommands(h.path, n)
	if err != nil {
		slog.Debug("shell history unreadable", "path", h.path, "error", err)
		return nil
	}
	return RedactCommands(cmds)
}

// parseHistoryLine strips shell-specific prefixes from history lines.
// Zsh extended history format: ": 1234567890:0;actual command"
// Bash format: just the command (no prefix)
func parseHistoryLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	// Bash HISTTIMEFORMAT markers: "#1700000000"
	if len(line) > 1 && line[0] == '#' && isDigits(line[1:]) {
		return ""
	}
	// Zsh extended history: ": <timestamp>:<duration>;<command>"
	if strings.HasPrefix(line, ": ") {
		if idx := strings.Index(line, ";"); idx != -1 {
			return strings.TrimSpace(line[idx+1:])
		}
	}
	return line
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// tailBytesPerCommand sizes the first read window from the end of the file.
const tailBytesPerCommand = 128

// tailCommands returns the last n commands of the history file at path.
// The window read from the end doubles until it yields n commands or covers
// the whole file, so timestamp lines and blanks never count toward n.
func tailCommands(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()

	for window := int64(n) * tailBytesPerCommand; ; window *= 2 {
		whole := window >= size
		if whole {
			window = size
		}
		cmds, err := commandsIn(io.NewSectionReader(f, size-window, window), !whole)
		if err != nil {
			return nil, err
		}
		if len(cmds) >= n || whole {
			if len(cmds) > n {
				cmds = cmds[len(cmds)-n:]
			}
			return cmds, nil
		}
	}
}

// commandsIn parses history lines from r. When the window starts mid-file
// its first line may be cut and is dropped.
func commandsIn(r io.Reader, cut bool) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var cmds []string
	for scanner.Scan() {
		if cut {
			cut = false
			continue
		}
		if cmd := parseHistoryLine(scanner.Text()); cmd != "" {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, scanner.Err()
}
