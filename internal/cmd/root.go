// Package cmd implements the command line interface of jsrt.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.jsrt.io/jsrt/lib/consts"
	"go.jsrt.io/jsrt/lib/fsext"
)

// globalFlags contains the config values that apply to all subcommands.
type globalFlags struct {
	quiet     bool
	verbose   bool
	noColor   bool
	logFormat string
}

// globalState groups the process-external state: the real filesystem,
// stdio, environment and logger. Everything below the CLI receives its
// dependencies from here instead of reaching for the os package, which is
// what keeps the runtime testable against in-memory substitutes.
type globalState struct {
	fs             fsext.Fs
	stdOut, stdErr io.Writer
	env            map[string]string
	logger         *logrus.Logger
	flags          globalFlags
}

func newGlobalState() *globalState {
	isDumbTerm := os.Getenv("TERM") == "dumb"
	stderrTTY := !isDumbTerm && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))

	env := buildEnvMap(os.Environ())
	_, noColorSet := env["NO_COLOR"] // even empty values disable colors

	logger := &logrus.Logger{
		Out: colorable.NewColorable(os.Stderr),
		Formatter: &logrus.TextFormatter{
			ForceColors:   stderrTTY,
			DisableColors: !stderrTTY || noColorSet || env["JSRT_NO_COLOR"] != "",
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}

	return &globalState{
		fs:     fsext.NewOsFs(),
		stdOut: os.Stdout,
		stdErr: os.Stderr,
		env:    env,
		logger: logger,
	}
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}

// applyLoggerFlags reconfigures the logger once the flags are parsed.
func (gs *globalState) applyLoggerFlags() error {
	switch {
	case gs.flags.verbose:
		gs.logger.SetLevel(logrus.DebugLevel)
	case gs.flags.quiet:
		gs.logger.SetLevel(logrus.ErrorLevel)
	}

	switch gs.flags.logFormat {
	case "json":
		gs.logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		if gs.flags.noColor {
			gs.logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
		}
	default:
		return errInvalidLogFormat(gs.flags.logFormat)
	}
	return nil
}

func newRootCommand(gs *globalState) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jsrt",
		Short:         "a minimal JavaScript runtime",
		Long:          "\njsrt runs a JavaScript entry module and drives its asynchronous work\nto completion.",
		Version:       consts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return gs.applyLoggerFlags()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&gs.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&gs.flags.quiet, "quiet", "q", false, "disable all logging below errors")
	pf.BoolVar(&gs.flags.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&gs.flags.logFormat, "log-format", "", `log output format ("text" or "json")`)

	rootCmd.AddCommand(getRunCmd(gs))

	return rootCmd
}

// Execute parses the CLI and runs the selected subcommand, exiting the
// process non-zero on failure.
func Execute() {
	gs := newGlobalState()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(gs)
	rootCmd.SetArgs(os.Args[1:])
	rootCmd.SetOut(gs.stdOut)
	rootCmd.SetErr(gs.stdErr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		gs.logger.Error(err)
		os.Exit(1)
	}
}

type errInvalidLogFormat string

func (e errInvalidLogFormat) Error() string {
	return "invalid log format '" + string(e) + "', expected 'text' or 'json'"
}
