// Package log defines the structured logging interface used across the
// service, with a zerolog-backed default implementation.
package log

import "context"

// Logger is the logging contract every component depends on.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	// With returns a derived logger carrying the given fields on every event.
	With(fields map[string]interface{}) Logger
}
