// Package alog is a small asynchronous logging sink. It implements
// logx.Logger itself, so it drops in anywhere the rest of the module
// expects one, but every call it makes to the real destination logger
// happens on a background pool of goroutines instead of the caller's own
// (SPEC_FULL.md §2b/§2c): a slow log destination can never stall the
// reactor goroutine or a worker.
//
// It is grounded on github.com/wuyongjia/threadpool, one of the teacher
// repo's (gotcp-epoll) own dependencies that the core Reactor/WorkerPool
// design doesn't otherwise use directly (the core WorkerPool is hand-rolled
// per the original spec's testable TaskQueue semantics; see the repo's
// top-level DESIGN.md), and on go.osspkg.com/logx's Logger/Fields idiom.
package alog

import (
	"io"

	"github.com/wuyongjia/threadpool"
	"go.osspkg.com/logx"
)

// DefaultQueueLength bounds how many pending log records the background
// pool will hold before Invoke starts applying backpressure.
const DefaultQueueLength = 4096

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

type record struct {
	level  level
	msg    string
	args   []interface{}
	fields logx.Fields
}

// Sink wraps a logx.Logger destination and is itself a logx.Logger:
// WithFields returns another Sink carrying the merged fields, and every
// Errorf/Warnf/Infof/Debugf call is handed to a worker goroutine instead
// of running against dest inline.
type Sink struct {
	dest   logx.Logger
	pool   *threadpool.Pool
	fields logx.Fields
}

// New starts a Sink backed by workers background goroutines, each pulling
// from a shared bounded queue via github.com/wuyongjia/threadpool, exactly
// as the teacher's own threadpool.go wires OnReceive/OnAccept/OnClose/OnError
// dispatch (`threadpool.NewWithFunc(n, maxQueueLength, func(payload interface{}))`).
func New(dest logx.Logger, workers, maxQueueLength int) *Sink {
	if workers <= 0 {
		workers = 1
	}
	if maxQueueLength <= 0 {
		maxQueueLength = DefaultQueueLength
	}
	s := &Sink{dest: dest}
	s.pool = threadpool.NewWithFunc(workers, maxQueueLength, func(payload interface{}) {
		rec, ok := payload.(record)
		if !ok {
			return
		}
		s.emit(rec)
	})
	return s
}

// WithFields returns a Sink sharing this one's destination and worker pool,
// carrying fields merged on top of any this Sink already holds — the same
// chaining contract logx.Logger.WithFields has everywhere else in the
// module (e.g. reactor.go, connection.go).
func (s *Sink) WithFields(fields logx.Fields) logx.Writer {
	merged := make(logx.Fields, len(s.fields)+len(fields))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Sink{dest: s.dest, pool: s.pool, fields: merged}
}

// WithField and WithError mirror WithFields for the single-field forms of
// logx.Logger's WriterContext.
func (s *Sink) WithField(key string, value interface{}) logx.Writer {
	return s.WithFields(logx.Fields{key: value})
}

func (s *Sink) WithError(key string, err error) logx.Writer {
	if err == nil {
		return s.WithFields(logx.Fields{key: nil})
	}
	return s.WithFields(logx.Fields{key: err.Error()})
}

// SetOutput, SetFormatter, SetLevel and GetLevel are configuration calls,
// not log records, so they apply directly to dest instead of going through
// the background pool.
func (s *Sink) SetOutput(out io.Writer)       { s.dest.SetOutput(out) }
func (s *Sink) SetFormatter(f logx.Formatter) { s.dest.SetFormatter(f) }
func (s *Sink) SetLevel(v uint32)             { s.dest.SetLevel(v) }
func (s *Sink) GetLevel() uint32              { return s.dest.GetLevel() }

func (s *Sink) emit(rec record) {
	var l logx.Writer = s.dest
	if rec.fields != nil {
		l = s.dest.WithFields(rec.fields)
	}
	switch rec.level {
	case levelFatal:
		l.Fatalf(rec.msg, rec.args...)
	case levelError:
		l.Errorf(rec.msg, rec.args...)
	case levelWarn:
		l.Warnf(rec.msg, rec.args...)
	case levelInfo:
		l.Infof(rec.msg, rec.args...)
	default:
		l.Debugf(rec.msg, rec.args...)
	}
}

func (s *Sink) enqueue(lvl level, msg string, args []interface{}) {
	s.pool.Invoke(record{level: lvl, msg: msg, args: args, fields: s.fields})
}

// Debugf, Infof, Warnf and Errorf enqueue a record for a background worker
// to format and write; the caller never blocks on the destination logger.
func (s *Sink) Debugf(msg string, args ...interface{}) { s.enqueue(levelDebug, msg, args) }
func (s *Sink) Infof(msg string, args ...interface{})  { s.enqueue(levelInfo, msg, args) }
func (s *Sink) Warnf(msg string, args ...interface{})  { s.enqueue(levelWarn, msg, args) }
func (s *Sink) Errorf(msg string, args ...interface{}) { s.enqueue(levelError, msg, args) }
func (s *Sink) Fatalf(msg string, args ...interface{}) { s.enqueue(levelFatal, msg, args) }

// Close stops accepting new records and waits for the background pool to
// drain, mirroring github.com/wuyongjia/threadpool's own Close/Stop
// contract.
func (s *Sink) Close() {
	s.pool.Close()
}
