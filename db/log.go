package db

import (
	"os"

	"github.com/rs/zerolog"
)

// engineLog is the package-wide structured logger; HeapFile derives its own
// child logger from it via .With().Str("component", ...). It sets no level
// of its own, so zerolog's global level (Debug unless changed) decides what
// is written; callers embedding this package can change that with
// zerolog.SetGlobalLevel.
var engineLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
