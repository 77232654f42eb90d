package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/handiism/kona-downloader/internal/relay"
)

func newRelayCmd(_ *options) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the background relay over stdin/stdout",
		Long: `Run the background relay.

The relay reads line-delimited JSON envelopes from stdin and writes replies
to stdout. Pages send "show" and "hide" messages and are told to "attach"
again when their navigation completes. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := relay.New(relay.NewPageActions())
			err := r.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
