// Package logging writes leveled, timestamped lines to the console and,
// best effort, to a log file. Both sinks share one line format:
//
//	[2006-01-02 15:04:05] [LEVEL] message key=value ...
//
// The file sink never propagates write errors; a broken disk must not
// take the run loop down with it.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const lineTimeFormat = "2006-01-02 15:04:05"

func init() {
	// The raw time field must match what lineWriter re-renders.
	zerolog.TimeFieldFormat = lineTimeFormat
}

type Config struct {
	Level string // ERROR, WARN, INFO or DEBUG; unknown falls back to INFO
	File  string // empty disables the file sink

	// Console overrides the console sink, used by tests.
	Console io.Writer
}

// Field mutates a zerolog event.
//
// Fields are applied in-order; if you set the same key multiple times,
// later fields win.
type Field func(e *zerolog.Event)

func String(k, v string) Field  { return func(e *zerolog.Event) { e.Str(k, v) } }
func Int(k string, v int) Field { return func(e *zerolog.Event) { e.Int(k, v) } }
func Bool(k string, v bool) Field {
	return func(e *zerolog.Event) { e.Bool(k, v) }
}
func Duration(k string, v time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(k, v) }
}
func Time(k string, v time.Time) Field { return func(e *zerolog.Event) { e.Time(k, v) } }
func Any(k string, v any) Field        { return func(e *zerolog.Event) { e.Interface(k, v) } }
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}

// Service owns the sinks and the current level. SetLevel may be called
// while loggers derived from the service are in use.
type Service struct {
	mu   sync.Mutex
	cur  zerolog.Logger
	file *os.File
}

// New builds the service. A file that cannot be opened is reported on
// the console and the service continues console-only.
func New(cfg Config) *Service {
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	s := &Service{}

	writers := []io.Writer{lineWriter(console)}
	if strings.TrimSpace(cfg.File) != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(console, "[%s] [WARN] log file unavailable, console only: %v\n",
				time.Now().Format(lineTimeFormat), err)
		} else {
			s.file = f
			writers = append(writers, lineWriter(&swallowWriter{w: f}))
		}
	}

	sink := zerolog.MultiLevelWriter(writers...)
	s.cur = zerolog.New(sink).Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger()
	return s
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

// SetLevel swaps the minimum level at runtime (config hot-reload).
func (s *Service) SetLevel(level string) {
	s.mu.Lock()
	s.cur = s.cur.Level(ParseLevel(level, zerolog.InfoLevel))
	s.mu.Unlock()
}

func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
}

func (s *Service) current() zerolog.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return def
	}
}

// lineWriter renders events into the bracketed line format.
func lineWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: lineTimeFormat,
		FormatTimestamp: func(i any) string {
			return fmt.Sprintf("[%v]", i)
		},
		FormatLevel: func(i any) string {
			return fmt.Sprintf("[%s]", strings.ToUpper(fmt.Sprint(i)))
		},
	}
}

// swallowWriter reports success no matter what the underlying writer
// says. Used for the file sink only.
type swallowWriter struct {
	w io.Writer
}

func (s *swallowWriter) Write(p []byte) (int, error) {
	_, _ = s.w.Write(p)
	return len(p), nil
}

// ---- Logger ----

// Logger is a lightweight handle onto the service.
//
// - It stays "live" across Service.SetLevel() calls.
// - With() returns a derived logger with additional fixed fields.
// - Zero value is a safe no-op logger.
type Logger struct {
	svc     *Service
	base    zerolog.Logger
	hasBase bool

	fields []Field
}

// Nop returns a logger that never writes anything.
func Nop() Logger {
	return Logger{base: zerolog.Nop(), hasBase: true}
}

func (l Logger) root() zerolog.Logger {
	if l.svc != nil {
		return l.svc.current()
	}
	if l.hasBase {
		return l.base
	}
	return zerolog.Nop()
}

func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	cp := l
	cp.fields = append(append([]Field(nil), l.fields...), fields...)
	return cp
}

func (l Logger) Debug(msg string, fields ...Field) { l.log(zerolog.DebugLevel, msg, fields...) }
func (l Logger) Info(msg string, fields ...Field)  { l.log(zerolog.InfoLevel, msg, fields...) }
func (l Logger) Warn(msg string, fields ...Field)  { l.log(zerolog.WarnLevel, msg, fields...) }
func (l Logger) Error(msg string, fields ...Field) { l.log(zerolog.ErrorLevel, msg, fields...) }

func (l Logger) log(level zerolog.Level, msg string, fields ...Field) {
	zl := l.root()
	e := zl.WithLevel(level)
	if e == nil {
		return
	}
	for _, f := range l.fields {
		if f != nil {
			f(e)
		}
	}
	for _, f := range fields {
		if f != nil {
			f(e)
		}
	}
	e.Msg(msg)
}
