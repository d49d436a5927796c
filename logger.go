package gifstack

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so log calls on
// the default logger never build their attributes.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr is read by pool goroutines while encodes run.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger routes gifstack's diagnostics to l. Nothing is logged until it
// is called; nil silences the package again. It may be called while
// encodes are in flight.
//
// Records, all with a "gifstack:" message prefix:
//   - Debug "encoded": one per finished encode, with frame size, palette
//     size, transparent index (-1 for none) and output bytes
//   - Debug "push" and "empty push ignored": one per DynamicStack push,
//     with the patch rectangle and the new bounding region
//   - Warn "async encode failed": an Encode or EncodeAsync job returned
//     an error (the error is still delivered to the caller)
//   - Warn "async encode not scheduled": the worker pool was closed
//
// A CLI typically enables it behind a verbose flag:
//
//	gifstack.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
//	    &slog.HandlerOptions{Level: slog.LevelDebug})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the logger set by SetLogger, or a silent one.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
