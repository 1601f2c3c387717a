package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
)

func main() {
	// .env feeds GEOSYNC_* settings and the AWS credential chain
	_ = godotenv.Load()

	setupLogging(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setupLogging runs before cobra parses anything, so the level flags are
// sniffed from the raw arguments.
func setupLogging(args []string) {
	level := slog.LevelInfo
	if s := os.Getenv("GEOSYNC_LOG_LEVEL"); s != "" {
		_ = level.UnmarshalText([]byte(s))
	}
	for _, arg := range args {
		switch arg {
		case "-q", "--quiet":
			level = slog.LevelWarn
		case "-v", "--verbose":
			level = slog.LevelDebug
		}
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) || viper.GetBool("no_color"),
	})
	slog.SetDefault(slog.New(handler))
}
