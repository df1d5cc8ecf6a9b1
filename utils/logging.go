package utils

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger fields
const (
	LogPackage = "pkg"
	LogFunc    = "func"
	LogEvent   = "event"
)

// logOutput lets InitLogger redirect loggers created during package init
type logOutput struct {
	mu sync.RWMutex
	w  io.Writer
}

func (o *logOutput) Write(p []byte) (int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.w.Write(p)
}

func (o *logOutput) set(w io.Writer) {
	o.mu.Lock()
	o.w = w
	o.mu.Unlock()
}

var output = &logOutput{w: os.Stderr}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// InitLogger configures the global logger. Development environments get a
// console writer, everything else writes JSON to stderr.
func InitLogger(level string, development bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if development {
		output.set(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		output.set(os.Stderr)
	}
}

// PackageLogger returns a logger tagged with pkg={pkg}
func PackageLogger(pkg string) zerolog.Logger {
	return log.With().Str(LogPackage, pkg).Logger()
}
