// Package cli provides the Cobra commands of the kona binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/handiism/kona-downloader/internal/app"
	"github.com/handiism/kona-downloader/internal/config"
	"github.com/handiism/kona-downloader/internal/logging"
)

// ErrInterrupted is returned when a command was stopped by a signal.
var ErrInterrupted = errors.New("interrupted")

// BuildInfo is set from ldflags in main.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	outputDir  string
	verbose    bool
	logLevel   string
	logFormat  string

	settings *config.Settings
	stdout   io.Writer
	stderr   io.Writer
}

// NewRootCmd builds the kona command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "kona",
		Short: "Download every attachment of a page as one zip",
		Long: `Kona scans a course page for file attachments, downloads each one and
packs them into a single uncompressed kona.zip.

Settings come from an optional config file and KONA_* environment variables;
flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}
			return opts.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (toml, yaml or json)")
	root.PersistentFlags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "show verbose output")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		newDownloadCmd(opts),
		newTUICmd(opts),
		newRelayCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(info),
	)
	return root
}

// Execute runs the root command and exits with a matching status.
func Execute(info BuildInfo) {
	if err := NewRootCmd(info).Execute(); err != nil {
		if errors.Is(err, ErrInterrupted) {
			fmt.Fprintln(os.Stderr, "Interrupted, cancelled.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init loads settings, applies flag overrides and installs the logger in
// the command context.
func (o *options) init(cmd *cobra.Command) error {
	o.stdout = cmd.OutOrStdout()
	o.stderr = cmd.ErrOrStderr()

	settings, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.outputDir != "" {
		settings.OutputDir = o.outputDir
	}
	if o.verbose {
		settings.Verbose = true
	}
	if o.logLevel != "" {
		settings.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		settings.LogFormat = o.logFormat
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	o.settings = settings

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithContext(ctx, o.logger(o.stderr)))
	return nil
}

func (o *options) logger(out io.Writer) zerolog.Logger {
	return app.Logger(o.settings, out)
}
