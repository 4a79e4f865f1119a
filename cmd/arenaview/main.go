package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/arenaview/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	logPath := flag.String("log", "", "client log to follow (overrides log_path)")
	headless := flag.Bool("headless", false, "run without the terminal overlay and log snapshots")
	replay := flag.String("replay", "", "replay a finished log file instead of tailing")
	replayDelay := flag.Duration("replay-delay", 0, "pause between replayed lines, e.g. 5ms")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:  *configPath,
		LogPath:     *logPath,
		Headless:    *headless,
		Replay:      *replay,
		ReplayDelay: *replayDelay,
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "arenaview: %v\n", err)
		return 1
	}
	return 0
}
