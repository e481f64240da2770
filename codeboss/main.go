// Command codeboss turns a one-line request into a script or shell command,
// saves it, and asks whether to run it, edit it or leave it.
//
// Usage:
//
//	codeboss "make a python script that prints my public ip"
//	codeboss --model llama-3.3-70b-versatile "show disk usage"
//	codeboss -- -la means what again
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/syngh-ai/syngh"
	"github.com/syngh-ai/syngh/dispatch"
	"github.com/syngh-ai/syngh/internal/cli"
	"github.com/syngh-ai/syngh/prompt"
)

const usage = `codeboss [flags] [--] "describe what you want done"`

func main() {
	ctx, stop := cli.SignalContext()
	err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.Report(os.Stderr, err, usage)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		model   string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           usage,
		Short:         "Generate a script or shell command and decide what to do with it",
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

			a := newApp(cfg, key, dispatch.NewExecRunner(), stdin, stdout)
			a.model = model
			return a.run(cmd.Context(), userPrompt)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model to use instead of the configured one")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	// Everything after the first word belongs to the prompt, dashes included.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
