package main

import (
	"context"
	"fmt"
	"os"

	"github.com/handiism/kona-downloader/internal/config"
	"github.com/handiism/kona-downloader/internal/logging"
	"github.com/handiism/kona-downloader/internal/tui"
)

func main() {
	settings, err := config.Load(os.Getenv("KONA_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := logging.WithContext(context.Background(), logging.Nop())
	if err := tui.Run(ctx, settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
