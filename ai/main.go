// Command ai streams a chat answer into a live terminal panel, showing the
// model's reasoning dimmed above the reply, and remembers recent turns.
//
// Usage:
//
//	ai "why is my docker build so slow"
//	ai -- "-rf vs -fr, any difference?"
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/syngh-ai/syngh"
	"github.com/syngh-ai/syngh/internal/cli"
	"github.com/syngh-ai/syngh/prompt"
	"github.com/syngh-ai/syngh/render"
)

const usage = `ai [flags] [--] "your question here"`

func main() {
	ctx, stop := cli.SignalContext()
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.Report(os.Stderr, err, usage)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		model   string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           usage,
		Short:         "Ask a question and watch the answer stream in",
		Version:       cli.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.SetupLogging(cmd.ErrOrStderr(), verbose)

			userPrompt, err := prompt.Normalize(args)
			if err != nil {
				return err
			}
			cfg, err := syngh.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			key, err := syngh.RequireAPIKey(cfg)
			if err != nil {
				return err
			}

			a := newApp(cfg, key, newLive(stdout, cfg))
			a.model = model
			return a.run(cmd.Context(), userPrompt)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model to use instead of the configured one")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newLive(w io.Writer, cfg *syngh.Config) *render.Live {
	if f, ok := w.(*os.File); ok {
		return render.NewLive(f, cfg.TypingDelay())
	}
	return render.NewLiveWriter(w, false, 80, 0, 0)
}
