package logs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// logEntry is a single formatted log line bound for a Backend's writers.
type logEntry struct {
	level Level
	log   []byte
}

// Logger writes leveled, subsystem-tagged log lines through its Backend.
// The zero value is not usable; obtain one via Backend.Logger or Get.
type Logger struct {
	level   uint32
	tag     string
	backend *Backend

	writeChan chan logEntry
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// Backend returns the backend behind this logger.
func (l *Logger) Backend() *Backend {
	return l.backend
}

func (l *Logger) write(level Level, format string, args []interface{}) {
	if level < l.Level() {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	line := fmt.Sprintf("%s [%s] %s %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), level, l.tag, msg)
	select {
	case l.writeChan <- logEntry{level: level, log: []byte(line)}:
	default:
		// Backend isn't running (or is saturated) — drop rather than block
		// the caller; logging must never be able to stall message handling.
	}
}

func (l *Logger) Tracef(format string, args ...interface{})    { l.write(LevelTrace, format, args) }
func (l *Logger) Debugf(format string, args ...interface{})    { l.write(LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...interface{})     { l.write(LevelInfo, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})     { l.write(LevelWarn, format, args) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.write(LevelError, format, args) }
func (l *Logger) Criticalf(format string, args ...interface{}) { l.write(LevelCritical, format, args) }

// subsystemTags enumerates the short tags used to identify each subsystem's
// log lines, mirroring the teacher's logger.SubsystemTags convention.
type subsystemTags struct {
	DISP string // message dispatcher
	SCHD string // send scheduler
	PEER string // per-peer state / coordinator
	ORPH string // orphan pool
	FILT string // inventory / reject / peer-tx filters
	VLSN string // validation listener
	PLAN string // block download planner
	AMGR string // address manager
	NODE string // top-level node wiring
}

// SubsystemTags is the fixed set of subsystem tags this module's packages
// log under.
var SubsystemTags = subsystemTags{
	DISP: "DISP",
	SCHD: "SCHD",
	PEER: "PEER",
	ORPH: "ORPH",
	FILT: "FILT",
	VLSN: "VLSN",
	PLAN: "PLAN",
	AMGR: "AMGR",
	NODE: "NODE",
}

var (
	defaultBackendOnce sync.Once
	defaultBackend     *Backend
	loggers            sync.Map // tag -> *Logger
)

func ensureDefaultBackend() *Backend {
	defaultBackendOnce.Do(func() {
		defaultBackend = NewBackend()
		_ = defaultBackend.AddLogWriter(nopWriteCloser{}, LevelOff)
		_ = defaultBackend.Run()
	})
	return defaultBackend
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }

// Get returns the Logger for the given subsystem tag, creating it against the
// package-level default Backend on first use. A second return value reports
// whether the logger already existed, matching the teacher's Get signature.
func Get(tag string) (*Logger, bool) {
	backend := ensureDefaultBackend()
	if existing, ok := loggers.Load(tag); ok {
		return existing.(*Logger), true
	}
	logger := backend.Logger(tag)
	actual, loaded := loggers.LoadOrStore(tag, logger)
	return actual.(*Logger), loaded
}

// UseBackend replaces the package-level default backend used by Get, for
// callers (such as cmd/xueznode) that want file-backed logging instead of
// the no-op default. Must be called before the first Get.
func UseBackend(b *Backend) {
	defaultBackendOnce.Do(func() {
		defaultBackend = b
		_ = b.Run()
	})
}
