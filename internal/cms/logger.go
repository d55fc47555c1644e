package cms

// Logger receives the core's diagnostics: cache misses and stale entries
// at Debug, commits at Info, best-effort failures (cache writes, hooks
// that only log) at Warn. Args are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. It is the App default.
type NopLogger struct{}

var _ Logger = NopLogger{}

func NewNopLogger() NopLogger { return NopLogger{} }

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
