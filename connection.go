package reactor

import (
	"bytes"

	"golang.org/x/sys/unix"

	"go.osspkg.com/logx"
)

// asyncResponsePrefix is prepended to the accumulated buffer on newline
// detection (§4.5, §6).
var asyncResponsePrefix = []byte("Async ")

// ConnectionHandler is the reference connection handler (§4.5): it reads,
// frames on newline, and dispatches the echo computation to the worker
// pool. State: owned handle, accumulated-message buffer, byte counter.
//
// The accumulated buffer is intentionally never cleared after a newline
// dispatch — this reproduces a bug in the reference implementation that
// the spec explicitly preserves for bit-faithful behavior (§9). See
// TestConnectionHandlerAccumulatedBufferGrows.
type ConnectionHandler struct {
	fd             int
	reactor        *Reactor
	log            logx.Logger
	bufs           *bufferPool
	accumulated    bytes.Buffer
	totalBytesRead int64
}

// NewConnectionHandler wraps an already-accepted, non-blocking client fd.
func NewConnectionHandler(fd int, reactor *Reactor, log logx.Logger, bufs *bufferPool) *ConnectionHandler {
	return &ConnectionHandler{fd: fd, reactor: reactor, log: log, bufs: bufs}
}

func (c *ConnectionHandler) Handle() int { return c.fd }

// OnReadable repeatedly receives into a pooled buffer until it observes
// EAGAIN, a clean close, or a hard error (§4.5). Edge-triggered readiness
// requires draining fully, since epoll won't re-notify until more data
// arrives.
func (c *ConnectionHandler) OnReadable() {
	buf, err := c.bufs.get()
	if err != nil {
		if c.log != nil {
			c.log.WithFields(logx.Fields{"err": err.Error(), "fd": c.fd}).Errorf("reactor: buffer pool exhausted")
		}
		_ = c.reactor.Unregister(c.fd)
		return
	}
	defer c.bufs.put(buf)

	for {
		n, err := unix.Read(c.fd, *buf)
		switch {
		case n > 0:
			c.totalBytesRead += int64(n)
			chunk := (*buf)[:n]
			c.accumulated.Write(chunk)
			if bytes.IndexByte(chunk, '\n') >= 0 {
				c.dispatchAsyncEcho()
			}
			// Edge-triggered semantics require looping until EAGAIN is
			// observed explicitly, even after a short read, so control
			// simply falls through to the next iteration here.
		case n == 0:
			if c.log != nil {
				c.log.WithFields(logx.Fields{"err": ErrPeerClosed.Error(), "fd": c.fd}).Debugf("reactor: peer closed connection")
			}
			_ = c.reactor.Unregister(c.fd)
			return
		default:
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if c.log != nil {
				c.log.WithFields(logx.Fields{"err": err.Error(), "fd": c.fd}).Errorf("reactor: read failed")
			}
			_ = c.reactor.Unregister(c.fd)
			return
		}
	}
}

// dispatchAsyncEcho submits a task whose compute stage snapshots the
// accumulated buffer and prefixes it, and whose continuation writes the
// result back to the connection (§4.5, §6).
func (c *ConnectionHandler) dispatchAsyncEcho() {
	snapshot := append([]byte(nil), c.accumulated.Bytes()...)
	fd := c.fd

	compute := func() ([]byte, error) {
		out := make([]byte, 0, len(asyncResponsePrefix)+len(snapshot))
		out = append(out, asyncResponsePrefix...)
		out = append(out, snapshot...)
		return out, nil
	}

	continuation := func(result []byte, err error) {
		if err != nil {
			if c.log != nil {
				c.log.WithFields(logx.Fields{"err": err.Error(), "fd": fd}).Errorf("reactor: echo compute failed")
			}
			return
		}
		c.writeStale(fd, result)
	}

	c.reactor.SubmitTask(compute, continuation)
}

// writeStale writes result to fd, which may have been unregistered and
// closed by the time this continuation runs (§4.5 Lifetime across thread
// hop). A single unix.Write is issued, exactly as
// original_source/src/ConnectionHandler.cpp's send() does: the reactor
// goroutine must never suspend or spin outside the readiness primitive
// call (§5), so a partial write from a full kernel send buffer is not
// retried here — §9 assumes the socket buffer is large enough for the
// reference echo payloads, and the remainder is dropped rather than
// looped on EAGAIN. Any resulting error is classified as a stale
// continuation and swallowed (§7).
func (c *ConnectionHandler) writeStale(fd int, result []byte) {
	n, err := unix.Write(fd, result)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if c.log != nil {
			c.log.WithFields(logx.Fields{"err": ErrStaleContinuation.Error(), "cause": err.Error(), "fd": fd}).Warnf("reactor: stale continuation write")
		}
		return
	}
	if n < len(result) && c.log != nil {
		c.log.WithFields(logx.Fields{"fd": fd, "wrote": n, "total": len(result)}).Warnf("reactor: partial echo write dropped remainder")
	}
}

func (c *ConnectionHandler) OnWritable() {}
