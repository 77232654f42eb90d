package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/kona-downloader/internal/app"
	"github.com/handiism/kona-downloader/internal/logging"
	"github.com/handiism/kona-downloader/internal/model"
	"github.com/handiism/kona-downloader/internal/pipeline"
)

func newDownloadCmd(opts *options) *cobra.Command {
	var (
		baseURL string
		name    string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "download <page>",
		Short: "Download all attachments of a page into one zip",
		Long: `Download every file linked from a page and save them as one archive.

<page> is either an http(s) URL or a saved HTML file. Saved pages with
relative links need --base-url.

Examples:
  kona download https://lms.example.edu/courses/42/files
  kona download ./files.html --base-url https://lms.example.edu/courses/42/
  kona download ./files.html -o ~/Downloads --name week1.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" {
				opts.settings.ArchiveName = name
				if err := opts.settings.Validate(); err != nil {
					return err
				}
			}
			return withSignals(cmd.Context(), func(ctx context.Context) error {
				return runDownload(ctx, opts, args[0], baseURL, dryRun)
			})
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "URL relative links are resolved against")
	cmd.Flags().StringVar(&name, "name", "", "archive file name (overrides config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files without downloading")
	return cmd
}

func runDownload(ctx context.Context, opts *options, page, baseURL string, dryRun bool) error {
	out := opts.stdout
	verbose := opts.settings.Verbose

	a := app.New(opts.settings, app.Options{
		OnProgress: func(event pipeline.ProgressEvent) {
			printEvent(out, event, verbose)
		},
		OnEntry: func(e model.Entry) {
			if e.Done && e.Visible {
				fmt.Fprintf(out, "   %s %s\n", e.Label(), e.Name)
			}
		},
	})

	fmt.Fprintln(out, "📦 Kona Downloader")
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out)

	links, err := a.Discover(ctx, page, baseURL)
	if err != nil {
		fmt.Fprintf(out, "❌ Download failed: %s\n", pipeline.UserMessage(err))
		return err
	}
	fmt.Fprintf(out, "Found %d file(s)\n", len(links))

	if dryRun {
		for _, link := range links {
			fmt.Fprintf(out, "  %s\n", link)
		}
		fmt.Fprintln(out, "\n[Dry run - not downloading]")
		return nil
	}

	fmt.Fprintln(out, "\n📥 Starting downloads...")
	fmt.Fprintln(out)

	path, err := a.Download(ctx, links)
	if err != nil {
		return err
	}

	received, done, total := a.Manager.GetProgress()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(out, "✨ Complete! Archived %d/%d files (%.2f MB)\n", done, total, float64(received)/1024/1024)
	fmt.Fprintf(out, "   Saved to %s\n", path)
	return nil
}

func printEvent(out io.Writer, event pipeline.ProgressEvent, verbose bool) {
	if event.Level == pipeline.LevelVerbose && !verbose {
		return
	}

	var prefix string
	switch event.Level {
	case pipeline.LevelError:
		prefix = "❌ "
	case pipeline.LevelWarning:
		prefix = "⚠️  "
	case pipeline.LevelSuccess:
		prefix = "✅ "
	case pipeline.LevelInfo:
		prefix = "ℹ️  "
	default:
		prefix = "   "
	}
	fmt.Fprintln(out, prefix+event.Message)
}

// withSignals runs fn with a context cancelled on SIGINT or SIGTERM.
//
// It returns ErrInterrupted when a signal stopped fn.
func withSignals(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, stop := context.WithCancel(parent)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		return fn(gctx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logging.FromContext(parent).Warn().Str("signal", sig.String()).Msg("cancelling")
			return fmt.Errorf("%w by %s", ErrInterrupted, sig)
		case <-gctx.Done():
			return nil
		}
	})

	return g.Wait()
}
