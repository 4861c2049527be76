package cmd

import (
	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.jsrt.io/jsrt/js"
	"go.jsrt.io/jsrt/lib"
)

// envOptions are runtime knobs taken from the environment rather than
// flags, so embedders and CI set them once.
type envOptions struct {
	LogLevel            string `envconfig:"JSRT_LOG_LEVEL"`
	CompletionQueueSize int    `envconfig:"JSRT_COMPLETION_QUEUE_SIZE"`
}

func getRunCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "run a JavaScript entry module",
		Long: "\nRun resolves the static import graph of the given entry module,\n" +
			"evaluates it, calls its exported main() and settles all asynchronous\n" +
			"work before exiting.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts envOptions
			if err := envconfig.Process("", &opts); err != nil {
				return err
			}
			if opts.LogLevel != "" {
				level, err := logrus.ParseLevel(opts.LogLevel)
				if err != nil {
					return err
				}
				gs.logger.SetLevel(level)
			}

			runtime := js.NewWithState(&lib.State{
				FS:                  gs.fs,
				Stdout:              gs.stdOut,
				Stderr:              gs.stdErr,
				Logger:              gs.logger,
				CompletionQueueSize: opts.CompletionQueueSize,
			})

			result, err := runtime.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if result != nil {
				gs.logger.WithField("value", result.String()).Debug("main returned")
			}
			return nil
		},
	}
}
