package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syngh-ai/syngh"
	"github.com/syngh-ai/syngh/generate"
	"github.com/syngh-ai/syngh/memory"
	"github.com/syngh-ai/syngh/prompt"
	"github.com/syngh-ai/syngh/render"
)

// fragments is a finite stream of response text.
type fragments interface {
	Next() bool
	Text() string
	Err() error
	Close() error
}

type streamFunc func(ctx context.Context, msgs []syngh.Message, opts generate.Options) (fragments, error)

// app is one ai invocation.
type app struct {
	cfg       *syngh.Config
	model     string
	stream    streamFunc
	turns     *memory.Log[syngh.ChatTurn]
	promptDir string
	live      *render.Live
}

func newApp(cfg *syngh.Config, apiKey string, live *render.Live) *app {
	gen := generate.NewGenerator(syngh.ResolveBaseURL(cfg), apiKey, cfg.Timeout())
	return &app{
		cfg: cfg,
		stream: func(ctx context.Context, msgs []syngh.Message, opts generate.Options) (fragments, error) {
			s, err := gen.Stream(ctx, msgs, opts)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		turns:     memory.NewLog[syngh.ChatTurn](syngh.ExpandHome(cfg.Chat.MemoryFile)),
		promptDir: syngh.ConfigDir(),
		live:      live,
	}
}

// run streams the answer to userPrompt and remembers the turn once the
// stream has finished cleanly.
func (a *app) run(ctx context.Context, userPrompt string) error {
	turns, err := a.turns.Recent(a.cfg.Chat.MemoryLimit)
	if err != nil {
		slog.Warn("failed to read chat log", "path", a.turns.Path(), "error", err)
	}
	msgs := prompt.BuildChat(prompt.System(prompt.Chat, a.promptDir), turns, userPrompt)

	opts := generate.OptionsFor(a.cfg.Chat)
	if a.model != "" {
		opts.Model = a.model
	}
	slog.Debug("prompt assembled", "messages", len(msgs), "turns", len(turns), "model", opts.Model)

	stream, err := a.stream(ctx, msgs, opts)
	if err != nil {
		return fmt.Errorf("API Error: %w", err)
	}
	defer stream.Close()

	splitter := render.NewSplitter()
	for stream.Next() {
		if splitter.Feed(stream.Text()) == render.EventFlush {
			slog.Debug("reasoning finished", "chars", len(splitter.Frame().Reasoning))
		}
		a.live.Update(splitter.Frame())
	}
	a.live.Finish()
	if err := stream.Err(); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}

	turn := syngh.ChatTurn{Timestamp: syngh.Now(), User: userPrompt, AI: splitter.Raw()}
	if err := a.turns.Append(turn); err != nil {
		return fmt.Errorf("save chat turn: %w", err)
	}
	return nil
}
