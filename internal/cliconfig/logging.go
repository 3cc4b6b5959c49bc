package cliconfig

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/bft-labs/timelinewatch/pkg/log"
)

// NewLogger builds the CLI logger writing to w. FormatAuto picks console
// output when w is a terminal and JSON otherwise.
func NewLogger(w io.Writer, format, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if format == FormatConsole || (format == FormatAuto && isTerminal(w)) {
		return log.NewConsoleLogger(w).Zerolog().Level(lvl), nil
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
