// Package log builds the slog loggers injected throughout ragent.
//
// There is no package-level logger. Every component takes a log.Logger in
// its constructor and narrows it with With() for per-component context;
// tests pass NewNop. Construction happens once, in cmd, where the verbosity
// and format flags are known.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so call sites keep the full slog surface
// (With, groups, level methods) without an interface wrapper in between.
type Logger = *slog.Logger

// Config controls handler construction.
type Config struct {
	// Level is the minimum level emitted. The zero value is slog.LevelInfo.
	Level slog.Level

	// JSON switches output from text to JSON, one object per record.
	JSON bool

	// AddSource annotates each record with the emitting file and line.
	AddSource bool
}

// New returns a logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop returns a logger that discards every record. Test use only; in
// production it hides exactly the output needed to debug a failure.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
