package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Logger is a zerolog-backed structured logger. The service name is
// rendered as a short tag by the console writer.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// New builds a Logger from cfg. Format "console" or "pretty" selects
// the human-readable writer; anything else emits JSON lines.
func New(cfg *Config, service string) *Logger {
	sink := io.Writer(destination(cfg.Output))
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		sink = consoleWriter(cfg, service)
	}

	zl := zerolog.New(sink).Level(levelFor(cfg.Level))
	with := zl.With()
	if cfg.Timestamp {
		with = with.Timestamp()
	}
	if cfg.Caller {
		with = with.Caller()
	}
	return &Logger{zl: with.Logger(), service: service}
}

// NewDefault returns a console logger at info level writing to stdout.
func NewDefault(service string) *Logger {
	return New(&Config{Level: "info", Format: "console", Output: "stdout", Timestamp: true}, service)
}

// Init installs the process-wide logger built from cfg. Call it once
// during startup, before any component starts logging.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	zerolog.SetGlobalLevel(levelFor(cfg.Level))
	SetGlobalLogger(New(&cfg, "default"))
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.child(l.zl.With().Str(FieldComponent, name))
}

// WithFields returns a child logger carrying every key in fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	with := l.zl.With()
	for k, v := range fields {
		with = with.Interface(k, v)
	}
	return l.child(with)
}

// WithError returns a child logger carrying err under the error key.
func (l *Logger) WithError(err error) *Logger {
	return l.child(l.zl.With().Err(err))
}

func (l *Logger) child(with zerolog.Context) *Logger {
	return &Logger{zl: with.Logger(), service: l.service}
}

// Debug logs msg at debug level with the given field maps.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

// Info logs msg at info level with the given field maps.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

// Warn logs msg at warn level with the given field maps.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

// Error logs msg at error level with the given field maps.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

// Fatal logs msg at fatal level and terminates the process.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Fatal(), msg, fields)
}

func emit(e *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, m := range fields {
		for k, v := range m {
			e = e.Interface(k, v)
		}
	}
	e.Msg(msg)
}

var global atomic.Pointer[Logger]

// SetGlobalLogger replaces the logger behind the package-level functions.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the process-wide logger. When Init was never
// called it lazily installs a console default.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, NewDefault("default"))
	return global.Load()
}

// Package-level functions log through the global logger.

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Fatal(msg, fields...) }

var (
	namedMu sync.RWMutex
	named   = make(map[string]*Logger)
)

// Register binds name to l for later Get calls.
func Register(name string, l *Logger) {
	namedMu.Lock()
	named[name] = l
	namedMu.Unlock()
}

// Get returns the logger registered under name. Unregistered names
// resolve to the global logger tagged with name as its component, so
// packages may Get their logger before startup seeds the registry.
func Get(name string) *Logger {
	namedMu.RLock()
	l, ok := named[name]
	namedMu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults seeds the registry with component-tagged children of
// the global logger. Call it after Init.
func RegisterDefaults(names ...string) {
	for _, name := range names {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}

const ansiReset = "\033[0m"

var consoleTags = map[string]struct{ tag, color string }{
	"DEBUG": {"[DBG]", "\033[36m"},
	"INFO":  {"[INF]", "\033[32m"},
	"WARN":  {"[WRN]", "\033[33m"},
	"ERROR": {"[ERR]", "\033[31m"},
	"FATAL": {"[FTL]", "\033[35m"},
}

func consoleWriter(cfg *Config, service string) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        destination(cfg.Output),
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			return serviceTag(service, cfg.NoColor) + levelTag(i, cfg.NoColor)
		},
		FormatMessage:    formatText,
		FormatFieldName:  func(i interface{}) string { return fmt.Sprintf("%s:", i) },
		FormatFieldValue: formatText,
	}
}

// levelTag maps a zerolog level name to its bracketed console tag,
// for example "[INF]" for info.
func levelTag(raw interface{}, noColor bool) string {
	name := strings.ToUpper(fmt.Sprintf("%s", raw))
	entry, ok := consoleTags[name]
	if !ok {
		return "[" + name + "]"
	}
	if noColor {
		return entry.tag
	}
	return entry.color + entry.tag + ansiReset
}

// serviceTag renders the first three letters of the service name as an
// uppercase prefix tag. Short or default service names produce none.
func serviceTag(service string, noColor bool) string {
	if service == "" || service == "default" || len(service) < 3 {
		return ""
	}
	tag := "[" + strings.ToUpper(service[:3]) + "]"
	if noColor {
		return tag
	}
	return "\033[34m" + tag + ansiReset
}

func formatText(i interface{}) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("%s", i)
}

func destination(output string) *os.File {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func levelFor(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
