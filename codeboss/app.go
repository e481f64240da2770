package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/syngh-ai/syngh"
	"github.com/syngh-ai/syngh/dispatch"
	"github.com/syngh-ai/syngh/generate"
	"github.com/syngh-ai/syngh/index"
	"github.com/syngh-ai/syngh/memory"
	"github.com/syngh-ai/syngh/prompt"
	"github.com/syngh-ai/syngh/task"
)

// recallWindow bounds how many past sessions are indexed for recall.
const recallWindow = 500

// completer returns the full model response for msgs.
type completer interface {
	Complete(ctx context.Context, msgs []syngh.Message, opts generate.Options) (string, error)
}

// app is one codeboss invocation.
type app struct {
	cfg       *syngh.Config
	model     string // overrides the profile model when set
	complete  completer
	sessions  *memory.Log[syngh.SessionRecord]
	history   *index.History
	recall    *index.Recall // nil when embeddings are not configured
	cachePath string
	promptDir string
	dispatch  *dispatch.Dispatcher
	out       io.Writer
}

func newApp(cfg *syngh.Config, apiKey string, runner dispatch.Runner, in io.Reader, out io.Writer) *app {
	a := &app{
		cfg:       cfg,
		complete:  generate.NewGenerator(syngh.ResolveBaseURL(cfg), apiKey, cfg.Timeout()),
		sessions:  memory.NewLog[syngh.SessionRecord](syngh.ExpandHome(cfg.Codeboss.MemoryFile)),
		history:   index.NewHistory(),
		cachePath: syngh.RecallCachePath(),
		promptDir: syngh.ConfigDir(),
		dispatch:  dispatch.New(dispatch.OptionsFromConfig(cfg), runner, in, out),
		out:       out,
	}
	if syngh.EmbeddingEnabled(cfg) {
		embedder := index.NewEmbedder(syngh.ResolveEmbeddingBaseURL(cfg), syngh.ResolveEmbeddingAPIKey(cfg), cfg.Embedding.Model)
		a.recall = index.NewRecall(embedder)
	}
	return a
}

// run generates a task for userPrompt, dispatches it and records the
// outcome. Nothing is recorded when the task never reaches the user.
func (a *app) run(ctx context.Context, userPrompt string) error {
	recent, err := a.sessions.Recent(a.cfg.Codeboss.MemoryLimit)
	if err != nil {
		slog.Warn("failed to read session log", "path", a.sessions.Path(), "error", err)
	}
	history := a.history.RecentCommands(a.cfg.Dispatch.HistoryLines)

	msgs := prompt.BuildCodeboss(prompt.CodebossInput{
		System:       prompt.System(prompt.Codeboss, a.promptDir),
		Recent:       recent,
		Related:      a.related(ctx, userPrompt, recent),
		ShellHistory: history,
		Prompt:       userPrompt,
	})

	opts := generate.OptionsFor(a.cfg.Codeboss)
	if a.model != "" {
		opts.Model = a.model
	}
	slog.Debug("prompt assembled", "messages", len(msgs), "recent", len(recent), "history", len(history))

	fmt.Fprintln(a.out, "🧠 Thinking...")
	raw, err := a.complete.Complete(ctx, msgs, opts)
	if err != nil {
		return fmt.Errorf("API Error: %w", err)
	}
	slog.Debug("model output", "raw", raw)

	d, err := task.Parse(raw)
	if err != nil {
		return err
	}

	action, err := a.dispatch.Dispatch(ctx, d)
	if err != nil {
		return err
	}

	rec := syngh.SessionRecord{
		Timestamp: syngh.Now(),
		Prompt:    userPrompt,
		Filename:  d.Filename,
		Action:    action,
		Code:      d.Code,
	}
	if err := a.sessions.Append(rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// related returns past sessions similar to userPrompt that are not already
// in recent. Failures only cost the extra context.
func (a *app) related(ctx context.Context, userPrompt string, recent []syngh.SessionRecord) []syngh.SessionRecord {
	if !a.recall.Enabled() {
		return nil
	}
	start := time.Now()

	if err := a.recall.LoadCache(a.cachePath); err != nil {
		slog.Debug("no recall cache loaded", "error", err)
	}
	past, err := a.sessions.Recent(recallWindow)
	if err != nil {
		slog.Warn("failed to read session log for recall", "error", err)
		return nil
	}
	if err := a.recall.Index(ctx, past); err != nil {
		slog.Warn("recall indexing failed", "error", err)
		return nil
	}
	if err := a.recall.SaveCache(a.cachePath); err != nil {
		slog.Warn("failed to save recall cache", "error", err)
	}

	inRecent := func(rec syngh.SessionRecord) bool {
		for _, r := range recent {
			if r.Prompt == rec.Prompt {
				return true
			}
		}
		return false
	}
	related, err := a.recall.Related(ctx, userPrompt, a.cfg.Embedding.RecallTopK, inRecent)
	if err != nil {
		slog.Warn("recall lookup failed", "error", err)
		return nil
	}
	slog.Debug("recall finished", "related", len(related), "elapsed", time.Since(start))
	return related
}
