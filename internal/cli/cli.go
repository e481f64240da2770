// Package cli holds the process setup shared by the codeboss and ai commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/syngh-ai/syngh/prompt"
	"github.com/syngh-ai/syngh/task"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var notifyContext = signal.NotifyContext

// SetupLogging installs the default slog logger on w. Only warnings are
// shown unless verbose is set. Every record carries the run id.
func SetupLogging(w io.Writer, verbose bool) string {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	id := RunID()
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("run", id))
	return id
}

// RunID returns a time-ordered identifier for one invocation.
func RunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SignalContext returns a context cancelled on interrupt or termination.
// The handler is released after the first signal, so a second one gets the
// default behaviour and ends the process.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

// Report prints err the way the user should see it. usage is shown for an
// empty prompt and for flags the command does not know.
func Report(w io.Writer, err error, usage string) {
	var parseErr *task.ParseError
	switch {
	case errors.Is(err, prompt.ErrEmptyPrompt):
		fmt.Fprintf(w, "⚠️ Usage: %s\n", usage)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "🛑 Interrupted.")
	case errors.As(err, &parseErr):
		fmt.Fprintf(w, "💀 AI sent bad JSON:\n\n%s\n", parseErr.Raw)
	case isFlagError(err):
		fmt.Fprintf(w, "❌ %v\n⚠️ Usage: %s\nPut -- before a prompt that starts with a dash.\n", err, usage)
	default:
		fmt.Fprintf(w, "❌ %v\n", err)
	}
}

// isFlagError matches the errors the flag parser returns for unknown flags.
func isFlagError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown flag: ") || strings.HasPrefix(msg, "unknown shorthand flag: ")
}
