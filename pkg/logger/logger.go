// Package logger is the zerolog front end shared by every binary. Fields are
// carried on the context and attached when an entry is written, so one
// context can be logged through any Logger.
package logger

import (
	"context"
	"io"
	"maps"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripcreators/creator-wallet/pkg/env"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a stack trace to warn entries as well as errors.
	WarnStack bool
	Output    io.Writer
}

type Logger struct {
	zl        zerolog.Logger
	warnStack bool
}

type fieldsKey struct{}

// New writes JSON to opts.Output (stdout by default); LOG_FORMAT=console
// switches to the human-readable writer.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(env.Get("LOG_FORMAT", "json"), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zl := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{zl: zl, warnStack: opts.WarnStack}
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// fields is an ordered key/value list; later keys shadow earlier ones when
// the entry is rendered.
func fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	kv, _ := ctx.Value(fieldsKey{}).([]any)
	return kv
}

func with(ctx context.Context, kv ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	existing := fields(ctx)
	merged := make([]any, 0, len(existing)+len(kv))
	merged = append(merged, existing...)
	merged = append(merged, kv...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return with(ctx, key, value)
}

// WithFields adds fields in key order.
func (l *Logger) WithFields(ctx context.Context, values map[string]any) context.Context {
	kv := make([]any, 0, 2*len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		kv = append(kv, k, values[k])
	}
	return with(ctx, kv...)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, "request_id", requestID)
}

// WithActor tags entries with the authenticated caller.
func (l *Logger) WithActor(ctx context.Context, userID, role string) context.Context {
	return with(ctx, "user_id", userID, "actor_role", role)
}

func (l *Logger) WithWalletID(ctx context.Context, walletID string) context.Context {
	return with(ctx, "wallet_id", walletID)
}

func (l *Logger) WithPayoutID(ctx context.Context, payoutID string) context.Context {
	return with(ctx, "payout_id", payoutID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.write(ctx, zerolog.DebugLevel, msg, nil, false)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.write(ctx, zerolog.InfoLevel, msg, nil, false)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	if l == nil {
		return
	}
	l.write(ctx, zerolog.WarnLevel, msg, nil, l.warnStack)
}

// Error always carries a stack trace.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.write(ctx, zerolog.ErrorLevel, msg, err, true)
}

// write is a no-op on a nil Logger so optional loggers need no guards.
func (l *Logger) write(ctx context.Context, level zerolog.Level, msg string, err error, stack bool) {
	if l == nil {
		return
	}
	event := l.zl.WithLevel(level)
	if event == nil {
		return
	}
	if kv := fields(ctx); len(kv) > 0 {
		event = event.Fields(kv)
	}
	if err != nil {
		event = event.Err(err)
	}
	if stack {
		event = event.Str("stack", strings.TrimSpace(string(debug.Stack())))
	}
	event.Msg(msg)
}
