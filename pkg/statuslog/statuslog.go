// Package statuslog provides the leveled logger used by replication-safe
// batch jobs. Log lines go to local streams; warnings and errors also mark
// a shared exit status that the host process reads to pick its exit code.
// When a remote status endpoint is configured, every emitted event is
// additionally queued for asynchronous delivery so that logging never
// blocks on network I/O.
package statuslog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siddontang/go-log/loggers"
)

// Level is a log severity. The numeric values are part of the remote
// record format and must not be reordered.
type Level int

const (
	LevelDebug Level = iota + 1
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// ExitStatus is the shared had-warnings-or-errors bit. The job wiring
// hands one instance to every logger; main reads it once at the end of
// the run instead of relying on ambient global state.
type ExitStatus struct {
	dirty atomic.Bool
}

func (e *ExitStatus) MarkDirty() {
	e.dirty.Store(true)
}

func (e *ExitStatus) Dirty() bool {
	return e.dirty.Load()
}

// Code returns the process exit code implied by the run: 1 if anything
// at warning level or above was logged, otherwise 0.
func (e *ExitStatus) Code() int {
	if e.Dirty() {
		return 1
	}
	return 0
}

// Config configures a Logger. All fields are optional; NewConfig fills
// in the defaults.
type Config struct {
	MinLevel   Level
	Out        io.Writer // debug and info lines
	ErrOut     io.Writer // warning and above
	ExitStatus *ExitStatus
	// Sender, when non-nil, receives every emitted event as a
	// (severity, message) record via a background worker.
	Sender    Sender
	QueueSize int
}

func NewConfig() *Config {
	return &Config{
		MinLevel:   LevelInfo,
		Out:        os.Stdout,
		ErrOut:     os.Stderr,
		ExitStatus: &ExitStatus{},
		QueueSize:  defaultQueueSize,
	}
}

// Logger is a leveled logger writing `<UTC timestamp> <LEVEL> <message>`
// lines. It implements loggers.Advanced so it can be passed anywhere the
// rest of the codebase expects a logger.
type Logger struct {
	mu        sync.Mutex
	minLevel  Level
	out       io.Writer
	errOut    io.Writer
	exit      *ExitStatus
	forwarder *forwarder
	exitFunc  func(int) // swapped out in tests
	now       func() time.Time
}

var _ loggers.Advanced = (*Logger)(nil)

func New(config *Config) *Logger {
	if config == nil {
		config = NewConfig()
	}
	l := &Logger{
		minLevel: config.MinLevel,
		out:      config.Out,
		errOut:   config.ErrOut,
		exit:     config.ExitStatus,
		exitFunc: os.Exit,
		now:      time.Now,
	}
	if l.minLevel == 0 {
		l.minLevel = LevelInfo
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	if l.errOut == nil {
		l.errOut = os.Stderr
	}
	if l.exit == nil {
		l.exit = &ExitStatus{}
	}
	if config.Sender != nil {
		size := config.QueueSize
		if size <= 0 {
			size = defaultQueueSize
		}
		l.forwarder = newForwarder(config.Sender, size, l.errOut)
	}
	return l
}

// ExitStatus returns the shared exit-status bit this logger marks on
// warnings and errors.
func (l *Logger) ExitStatus() *ExitStatus {
	return l.exit
}

// Close drains the remote forwarding queue and joins the worker. Nothing
// enqueued before Close is lost. Safe to call when no sender is
// configured, and safe to call more than once.
func (l *Logger) Close() error {
	if l.forwarder != nil {
		l.forwarder.Close()
	}
	return nil
}

func (l *Logger) log(level Level, message string) {
	if level < l.minLevel {
		return
	}
	if level >= LevelWarn {
		l.exit.MarkDirty()
	}
	w := l.out
	if level >= LevelWarn {
		w = l.errOut
	}
	line := fmt.Sprintf("%s %s %s\n", l.now().UTC().Format(time.RFC3339), level, message)
	l.mu.Lock()
	_, _ = io.WriteString(w, line)
	l.mu.Unlock()
	if l.forwarder != nil {
		l.forwarder.enqueue(Record{Severity: int(level), Message: message})
	}
}

func (l *Logger) fatal(message string) {
	l.log(LevelFatal, message)
	_ = l.Close()
	l.exitFunc(1)
}

func sprintln(args ...any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}

func (l *Logger) Debug(args ...any)                 { l.log(LevelDebug, fmt.Sprint(args...)) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Debugln(args ...any)               { l.log(LevelDebug, sprintln(args...)) }

func (l *Logger) Info(args ...any)                 { l.log(LevelInfo, fmt.Sprint(args...)) }
func (l *Logger) Infof(format string, args ...any) { l.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Infoln(args ...any)               { l.log(LevelInfo, sprintln(args...)) }

func (l *Logger) Warn(args ...any)                 { l.log(LevelWarn, fmt.Sprint(args...)) }
func (l *Logger) Warnf(format string, args ...any) { l.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnln(args ...any)               { l.log(LevelWarn, sprintln(args...)) }

func (l *Logger) Error(args ...any)                 { l.log(LevelError, fmt.Sprint(args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorln(args ...any)               { l.log(LevelError, sprintln(args...)) }

func (l *Logger) Fatal(args ...any)                 { l.fatal(fmt.Sprint(args...)) }
func (l *Logger) Fatalf(format string, args ...any) { l.fatal(fmt.Sprintf(format, args...)) }
func (l *Logger) Fatalln(args ...any)               { l.fatal(sprintln(args...)) }

// Print and Panic families satisfy loggers.Standard. Print logs at info;
// Panic logs at error and then panics, matching logrus semantics.
func (l *Logger) Print(args ...any)                 { l.Info(args...) }
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }
func (l *Logger) Println(args ...any)               { l.Infoln(args...) }

func (l *Logger) Panic(args ...any) {
	message := fmt.Sprint(args...)
	l.log(LevelError, message)
	panic(message)
}

func (l *Logger) Panicf(format string, args ...any) {
	l.Panic(fmt.Sprintf(format, args...))
}

func (l *Logger) Panicln(args ...any) {
	l.Panic(sprintln(args...))
}
