// Package logging defines the structured logger the rest of the module
// depends on, keeping call sites off any concrete logging backend.
package logging

import "context"

// Logger is a leveled, context-aware structured logger. The variadic args
// are alternating keys and values, slog style:
//
//	log.Info(ctx, "sync cycle finished", "pushed", n, "took", d)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given attributes on every record.
	With(args ...any) Logger
}
