// Package dispatch asks the user what to do with a generated task and then
// runs, edits or skips it.
package dispatch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"mvdan.cc/sh/v3/syntax"

	"github.com/syngh-ai/syngh"
	"github.com/syngh-ai/syngh/task"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	codeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Options configure a Dispatcher. Zero values fall back to sensible defaults.
type Options struct {
	Editor string // command line used for edit, split on spaces
	Shell  string // shell that runs raw commands with -c
	Dir    string // directory relative filenames are written to
	GOOS   string
	// LookPath resolves interpreter binaries; defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// OptionsFromConfig returns dispatcher options for cfg.
func OptionsFromConfig(cfg *syngh.Config) Options {
	return Options{Editor: cfg.Dispatch.Editor, Shell: cfg.Dispatch.Shell}
}

// Dispatcher acts on task descriptors after one line of confirmation.
type Dispatcher struct {
	opts   Options
	runner Runner
	in     *bufio.Reader
	out    io.Writer
}

// New creates a dispatcher reading answers from in and writing to out.
func New(opts Options, runner Runner, in io.Reader, out io.Writer) *Dispatcher {
	if strings.TrimSpace(opts.Editor) == "" {
		opts.Editor = "micro"
	}
	if opts.Shell == "" {
		opts.Shell = "sh"
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	return &Dispatcher{
		opts:   opts,
		runner: runner,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// Dispatch presents d, reads the user's answer and carries it out. The
// returned action is what the session log should record. An error is
// returned when the task could not be presented at all, or when ctx is
// cancelled while waiting for the answer. A Dispatcher is not reusable
// after a cancelled Dispatch.
func (dp *Dispatcher) Dispatch(ctx context.Context, d *task.Descriptor) (syngh.Action, error) {
	if d.IsCommand() {
		return dp.dispatchCommand(ctx, d)
	}
	return dp.dispatchFile(ctx, d)
}

func (dp *Dispatcher) dispatchCommand(ctx context.Context, d *task.Descriptor) (syngh.Action, error) {
	fmt.Fprintf(dp.out, "💡 %s %s\n", labelStyle.Render("Purpose:"), d.Purpose)
	fmt.Fprintf(dp.out, "🤖 %s %s\n", labelStyle.Render("Command:"), codeStyle.Render(d.Code))
	if err := checkSyntax(d.Code); err != nil {
		fmt.Fprintln(dp.out, warnStyle.Render("⚠️ Command does not parse as shell: "+err.Error()))
	}
	fmt.Fprintln(dp.out, "\n🧠 So... what now? Run it? Skip it?")

	answer, ok, err := dp.readAnswer(ctx)
	if err != nil {
		fmt.Fprintln(dp.out, "🛑 Cancelled.")
		return "", err
	}
	choice := syngh.ActionSkip
	if ok {
		choice = ClassifyCommand(answer)
	}
	slog.Debug("command answered", "action", choice)
	if choice != syngh.ActionRun {
		fmt.Fprintln(dp.out, "🛑 Skipped running command.")
		return choice, nil
	}

	fmt.Fprintln(dp.out, "🚀 Running command...")
	fmt.Fprintln(dp.out)
	stdout, stderr, err := dp.runner.Capture(ctx, dp.opts.Shell, d.Code)
	if stdout != "" {
		fmt.Fprintln(dp.out, labelStyle.Render("Command Output:"))
		fmt.Fprintln(dp.out, stdout)
	}
	if stderr != "" {
		fmt.Fprintln(dp.out, labelStyle.Render("Command Errors:"))
		fmt.Fprintln(dp.out, stderr)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(dp.out, errorStyle.Render("❌ Failed to start command: "+err.Error()))
	}
	return choice, nil
}

func (dp *Dispatcher) dispatchFile(ctx context.Context, d *task.Descriptor) (syngh.Action, error) {
	path := d.Filename
	if dp.opts.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dp.opts.Dir, path)
	}
	if err := os.WriteFile(path, []byte(d.Code), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", d.Filename, err)
	}
	// WriteFile keeps the mode of an existing file, so set it explicitly.
	if isScript(path) {
		if err := os.Chmod(path, 0755); err != nil {
			slog.Warn("failed to make script executable", "path", path, "error", err)
		}
	}

	fmt.Fprintf(dp.out, "📁 %s %s\n", labelStyle.Render("File created:"), d.Filename)
	fmt.Fprintf(dp.out, "💡 %s %s\n", labelStyle.Render("Purpose:"), d.Purpose)
	fmt.Fprintf(dp.out, "🤖 %s %s\n", labelStyle.Render("Suggested Action:"), strings.ToUpper(string(d.Action)))
	fmt.Fprintln(dp.out, "\n🧠 So... what now? Run it? Edit it? Skip it?")

	answer, ok, err := dp.readAnswer(ctx)
	if err != nil {
		fmt.Fprintln(dp.out, "🛑 Cancelled. File is saved.")
		return "", err
	}
	choice := syngh.ActionSkip
	if ok {
		choice = ClassifyFile(answer, d.Action)
	}
	slog.Debug("file answered", "file", path, "action", choice)

	switch choice {
	case syngh.ActionRun:
		fmt.Fprintln(dp.out, "🚀 Running...")
		fmt.Fprintln(dp.out)
		dp.runFile(ctx, path)
	case syngh.ActionEdit:
		editor := strings.Fields(dp.opts.Editor)
		fmt.Fprintf(dp.out, "✏️ Opening in %s...\n\n", editor[0])
		dp.attach(ctx, append(editor, path))
	default:
		fmt.Fprintln(dp.out, "🛑 Skipped. File is saved.")
	}
	return choice, nil
}

func (dp *Dispatcher) runFile(ctx context.Context, path string) {
	cmds, known := CommandsFor(path, dp.opts.GOOS)
	if !known {
		fmt.Fprintln(dp.out, warnStyle.Render("⚠️ Unknown file type: "+filepath.Base(path)))
		fmt.Fprintln(dp.out, "Trying to execute with default handler...")
	}
	for _, argv := range cmds {
		if !dp.attach(ctx, argv) {
			return
		}
	}
}

// attach runs argv on the terminal and reports whether it succeeded.
// Failures are printed, never returned.
func (dp *Dispatcher) attach(ctx context.Context, argv []string) bool {
	bin, err := dp.opts.LookPath(argv[0])
	if err != nil {
		slog.Warn("interpreter not found", "name", argv[0], "error", err)
		fmt.Fprintln(dp.out, errorStyle.Render(fmt.Sprintf("❌ %s not found in PATH", argv[0])))
		return false
	}
	if err := dp.runner.Attach(ctx, bin, argv[1:]...); err != nil {
		fmt.Fprintln(dp.out, errorStyle.Render(fmt.Sprintf("❌ %s failed: %v", argv[0], err)))
		return false
	}
	return true
}

type answerLine struct {
	text string
	err  error
}

// readAnswer reads one line of input. ok is false when input ended before
// anything was typed, which callers treat as skip. A cancelled ctx ends the
// wait with ctx's error; the pending read is abandoned.
func (dp *Dispatcher) readAnswer(ctx context.Context) (answer string, ok bool, err error) {
	fmt.Fprint(dp.out, "👉 ")
	lines := make(chan answerLine, 1)
	go func() {
		text, err := dp.in.ReadString('\n')
		lines <- answerLine{text, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(dp.out)
		return "", false, ctx.Err()
	case l := <-lines:
		if l.err != nil && l.text == "" {
			fmt.Fprintln(dp.out)
			return "", false, nil
		}
		return strings.TrimSpace(l.text), true, nil
	}
}

// checkSyntax reports whether code parses as a bash program.
func checkSyntax(code string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	_, err := parser.Parse(strings.NewReader(code), "")
	return err
}
