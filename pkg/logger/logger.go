package logger

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger holds multiple logging backends and dispatches log calls to all of them.
type Logger struct {
	instances []LoggerInstance
}

var singleton *Logger

func getSingleton() *Logger {
	return singleton
}

// Init initializes the global logger with one or more logging backends.
// This must be called before using any logging functions. Until then every
// call is a no-op, which keeps tests quiet.
func Init(instances ...LoggerInstance) {
	singleton = &Logger{
		instances: instances,
	}
}

func dispatch(fn func(LoggerInstance)) {
	logger := getSingleton()
	if logger == nil {
		return
	}
	for _, instance := range logger.instances {
		fn(instance)
	}
}

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Info(message, keyvals...) })
}

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Warn(message, keyvals...) })
}

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Error(message, keyvals...) })
}

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Debug(message, keyvals...) })
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Fatal(message, keyvals...) })
}

// Scoped prepends a fixed set of key/values to every call.
type Scoped struct {
	keyvals []any
}

// With returns a scoped logger, e.g. logger.With("year", 1850).
func With(keyvals ...any) Scoped {
	return Scoped{keyvals: keyvals}
}

// With returns a new scope extending s with more key/values.
func (s Scoped) With(keyvals ...any) Scoped {
	kv := make([]any, 0, len(s.keyvals)+len(keyvals))
	kv = append(kv, s.keyvals...)
	kv = append(kv, keyvals...)
	return Scoped{keyvals: kv}
}

func (s Scoped) merge(keyvals []any) []any {
	if len(s.keyvals) == 0 {
		return keyvals
	}
	kv := make([]any, 0, len(s.keyvals)+len(keyvals))
	kv = append(kv, s.keyvals...)
	return append(kv, keyvals...)
}

func (s Scoped) Debug(message string, keyvals ...any) { Debug(message, s.merge(keyvals)...) }
func (s Scoped) Info(message string, keyvals ...any)  { Info(message, s.merge(keyvals)...) }
func (s Scoped) Warn(message string, keyvals ...any)  { Warn(message, s.merge(keyvals)...) }
func (s Scoped) Error(message string, keyvals ...any) { Error(message, s.merge(keyvals)...) }
