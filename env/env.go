// Package env carries the per-document state shared by the DOM passes: the
// wikitext source, the logger and enabled trace channels.
package env

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/logging"
)

// Env is the processing context of one document. It is not safe for
// concurrent use.
type Env struct {
	// Src is the wikitext the document was parsed from.
	Src string
	// RunID identifies this document's run in log output.
	RunID string

	logger *slog.Logger
	traces map[string]bool
}

// Option configures an Env.
type Option func(*Env)

// WithLogger sets the logger records are written to.
func WithLogger(l *slog.Logger) Option {
	return func(e *Env) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrace enables trace output for the named passes (dsr, tplwrap,
// annwrap).
func WithTrace(passes ...string) Option {
	return func(e *Env) {
		for _, p := range passes {
			if p = strings.TrimSpace(p); p != "" {
				e.traces[p] = true
			}
		}
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(e *Env) {
		e.RunID = id
	}
}

// New returns an Env for the given source.
func New(src string, opts ...Option) *Env {
	e := &Env{
		Src:    src,
		RunID:  uuid.NewString(),
		logger: logging.Discard(),
		traces: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("run_id", e.RunID)
	return e
}

// Logger returns the env logger with the run id attached.
func (e *Env) Logger() *slog.Logger {
	return e.logger
}

// Log writes a record on the given channel, e.g. "info/dsr/negative".
func (e *Env) Log(level slog.Level, channel, msg string, args ...any) {
	ctx := context.Background()
	if !e.logger.Enabled(ctx, level) {
		return
	}
	e.logger.Log(ctx, level, msg, append([]any{"channel", channel}, args...)...)
}

// Info logs at info level.
func (e *Env) Info(channel, msg string, args ...any) {
	e.Log(slog.LevelInfo, channel, msg, args...)
}

// Warn logs at warn level.
func (e *Env) Warn(channel, msg string, args ...any) {
	e.Log(slog.LevelWarn, channel, msg, args...)
}

// Error logs at error level.
func (e *Env) Error(channel, msg string, args ...any) {
	e.Log(slog.LevelError, channel, msg, args...)
}

// TraceEnabled reports whether tracing is on for the pass that owns
// channel. "tplwrap/findranges" belongs to the "tplwrap" pass.
func (e *Env) TraceEnabled(channel string) bool {
	pass, _, _ := strings.Cut(channel, "/")
	return e.traces[pass]
}

// Trace logs the message built by fn on channel "trace/<channel>". fn only
// runs when the pass is traced.
func (e *Env) Trace(channel string, fn func() string) {
	if !e.TraceEnabled(channel) {
		return
	}
	e.Log(slog.LevelDebug, "trace/"+channel, fn())
}
