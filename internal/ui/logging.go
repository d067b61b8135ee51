package ui

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// SetupLogging configures the global zerolog logger. Output is human
// readable on a terminal and JSON otherwise.
func SetupLogging(level zerolog.Level, noColor bool) {
	setupLogging(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level, noColor)
}

func setupLogging(w io.Writer, console bool, level zerolog.Level, noColor bool) {
	zerolog.SetGlobalLevel(level)

	if console {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
