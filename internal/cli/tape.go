package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/tape"
	"github.com/spf13/cobra"
)

func newTapeCmd() *cobra.Command {
	feed := tape.DefaultFeedConfig()
	var (
		capacity int
		logFile  string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "tape",
		Short: "Watch a relay subject as a live trade tape",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the tape, so logs only go to a file.
			logCfg := logger.DefaultLogConfig()
			logCfg.Level = logLevel
			logCfg.Console = false
			logCfg.LogToFile = logFile != ""
			logCfg.FilePath = logFile
			logger.InitLogger(logCfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return tape.Run(ctx, feed, capacity, logger.NewLogger("tape"))
		},
	}

	f := cmd.Flags()
	f.StringVar(&feed.URL, "url", feed.URL, "relay WebSocket URL")
	f.StringVar(&feed.Subject, "subject", feed.Subject, `subject to follow ("*" for everything)`)
	f.IntVar(&feed.MaxAttempts, "max-attempts", feed.MaxAttempts, "reconnect attempts before giving up")
	f.DurationVar(&feed.BaseDelay, "reconnect-delay", feed.BaseDelay, "delay before the first reconnect, grows linearly")
	f.IntVar(&capacity, "rows", 200, "number of trades kept on the tape")
	f.StringVar(&logFile, "log-file", "", "write logs to this file")
	f.StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}
