package config

import (
    "io"
    "os"
    "time"

    "github.com/rs/zerolog"
)

// NewLogger builds the root logger.  In dev it writes human-readable
// console output, elsewhere one JSON object per line on stdout.  An
// unknown level name falls back to info.
func NewLogger(env, level string) zerolog.Logger {
    lvl, err := zerolog.ParseLevel(level)
    if err != nil || level == "" {
        lvl = zerolog.InfoLevel
    }
    var out io.Writer = os.Stdout
    if env == "dev" {
        out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
    }
    return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "table-reservation").Logger()
}
