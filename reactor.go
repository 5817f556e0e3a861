// Package reactor implements a single-threaded, event-driven I/O
// dispatcher augmented with a cross-thread worker pool, following the
// classical Reactor pattern. See SPEC_FULL.md for the full design.
package reactor

import (
	"context"
	"sync/atomic"
	"time"

	oerrors "go.osspkg.com/errors"
	"go.osspkg.com/logx"
	"golang.org/x/sys/unix"
)

// MaxEvents is the maximum number of ready events drained per epoll_wait
// batch (§4.1 step 2).
const MaxEvents = 64

// Reactor owns a registry of handlers keyed by Handle, a timer wheel, a
// worker pool, a completion inbox and a wake-up channel (§4.1). All
// mutation of the registry and timer wheel happens exclusively on the
// goroutine running Run.
type Reactor struct {
	epfd   int
	reg    *registry
	wheel  *timerWheel
	pool   *WorkerPool
	inbox  *completionInbox
	wake   *wakeupChannel
	log    logx.Logger
	events []unix.EpollEvent
	closed atomic.Bool
	done   chan struct{}
}

// New constructs a Reactor with n background workers. log receives every
// diagnostic event in the error taxonomy (§7); pass logx.New() for a
// ready-made default.
func New(n int, log logx.Logger) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, oerrors.Wrap(ErrSetupFailure, err)
	}

	wake, err := newWakeupChannel()
	if err != nil {
		_ = unix.Close(epfd)
		return nil, oerrors.Wrap(ErrSetupFailure, err)
	}

	r := &Reactor{
		epfd:   epfd,
		reg:    newRegistry(),
		wheel:  newTimerWheel(),
		inbox:  newCompletionInbox(),
		wake:   wake,
		log:    log,
		events: make([]unix.EpollEvent, MaxEvents),
		done:   make(chan struct{}),
	}

	r.pool = newWorkerPool(n, log, r.onTaskDone)

	if err := r.Register(&wakeupHandler{ch: wake}); err != nil {
		r.pool.Close()
		_ = unix.Close(epfd)
		_ = wake.close()
		return nil, oerrors.Wrap(ErrSetupFailure, err)
	}

	return r, nil
}

// onTaskDone is the WorkerPool completion callback: it is the only
// permitted cross-goroutine interaction workers have with the reactor
// (§4.3) — push the bound continuation into the inbox, then raise the
// wake-up channel.
func (r *Reactor) onTaskDone(result []byte, err error, continuation func([]byte, error)) {
	if continuation == nil {
		return
	}
	r.inbox.push(func() {
		continuation(result, err)
	})
	r.wake.raise()
}

// Register adds handler to the registry and subscribes its handle for
// edge-triggered read readiness (§4.1). Fails with ErrAlreadyRegistered if
// the handle is already present, or ErrClosed if Shutdown has already run.
func (r *Reactor) Register(handler EventHandler) error {
	if r.closed.Load() {
		return ErrClosed
	}
	fd := handler.Handle()
	if err := r.reg.put(fd, handler); err != nil {
		return err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		r.reg.delete(fd)
		return err
	}
	return nil
}

// Unregister removes handle from the registry, unsubscribes it from
// epoll, and closes it. Safe to call while iterating the current event
// batch (§4.1 step 3) — a handle removed mid-batch is simply skipped by
// the "not in registry -> skip" rule the next time it's seen.
func (r *Reactor) Unregister(handle int) error {
	if _, ok := r.reg.get(handle); !ok {
		return ErrNotRegistered
	}
	r.reg.delete(handle)
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, handle, nil)
	return unix.Close(handle)
}

// AddTimer inserts a timer that fires after delay, recurring at the same
// interval if recurring is true. Recurring timers re-arm at
// now+interval after their callback returns, not at expiresAt+interval,
// to avoid catch-up storms (§4.1 fireExpiredTimers).
func (r *Reactor) AddTimer(delay time.Duration, recurring bool, cb func()) TimerId {
	return r.wheel.insert(time.Now(), delay, recurring, cb)
}

// CancelTimer removes a timer before it fires (§2c, §9). No-op if id is
// unknown or has already fired. Effective no later than the next
// fireExpiredTimers.
func (r *Reactor) CancelTimer(id TimerId) {
	r.wheel.cancel(id)
}

// SubmitTask constructs a task that, after compute returns on a worker,
// pushes a closure binding the result to continuation into the completion
// inbox and signals the wake-up channel. Submits to the worker pool
// (§4.1 SubmitTask).
func (r *Reactor) SubmitTask(compute func() ([]byte, error), continuation func([]byte, error)) {
	r.pool.Submit(&task{compute: compute, continuation: continuation})
}

// Run is the event loop; it returns nil once Shutdown has been called and
// never returns otherwise. epoll_wait errors are logged and the loop
// continues (§7 ReadinessSpurious).
func (r *Reactor) Run() error {
	defer close(r.done)
	for !r.closed.Load() {
		timeout := r.computeTimeout()

		n, err := unix.EpollWait(r.epfd, r.events, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if r.log != nil {
				r.log.WithFields(logx.Fields{"err": err.Error(), "class": ErrReadinessSpurious.Error()}).Errorf("reactor: epoll_wait failed")
			}
			continue
		}

		for i := 0; i < n; i++ {
			r.handleEvent(r.events[i])
		}

		r.fireExpiredTimers()
	}
	return nil
}

func (r *Reactor) handleEvent(ev unix.EpollEvent) {
	fd := int(ev.Fd)

	if fd == r.wake.fd {
		r.wake.drain()
		r.inbox.drain()
		return
	}

	handler, ok := r.reg.get(fd)
	if !ok {
		// Removed earlier in this same batch; skip (§4.1 step 3, §8
		// invariant 2).
		return
	}

	// Edge-triggered epoll reports EPOLLHUP/EPOLLERR alongside EPOLLIN when
	// a peer writes then closes in the same instant it won't be reported
	// again, so readable data must be drained first (§4.1 step 3). The
	// handler's own OnReadable loop is what detects the peer close (a
	// recv/read of 0) and unregisters itself; a HUP/ERR seen here without
	// EPOLLIN means there was never anything to read, so it's unregistered
	// directly.
	if ev.Events&unix.EPOLLIN != 0 {
		handler.OnReadable()
		return
	}
	if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		_ = r.Unregister(fd)
		return
	}
	if ev.Events&unix.EPOLLOUT != 0 {
		handler.OnWritable()
	}
}

// computeTimeout returns the epoll_wait timeout in milliseconds: the time
// until the next timer deadline clamped to [0, inf), or -1 (block
// indefinitely) if no timers are scheduled (§4.1 step 1).
func (r *Reactor) computeTimeout() int {
	deadline, ok := r.wheel.nextDeadline()
	if !ok {
		return -1
	}
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	return int(d.Milliseconds())
}

// fireExpiredTimers detaches every bucket whose deadline has passed,
// runs each callback, then re-arms recurring ones (§4.1 fireExpiredTimers).
func (r *Reactor) fireExpiredTimers() {
	now := time.Now()
	due := r.wheel.popExpired(now)
	for _, t := range due {
		if t.cancelled {
			r.wheel.forget(t.id)
			continue
		}
		t.callback()
		if t.interval > 0 && !t.cancelled {
			r.wheel.rearm(t, now)
		} else {
			r.wheel.forget(t.id)
		}
	}
}

// Shutdown stops the event loop, tears down the worker pool, and closes
// the epoll and wake-up file descriptors (§2c). Closing the worker pool
// waits until every task already queued has run its compute stage; the
// continuations those tasks deliver are never run, since the loop has
// stopped. If ctx ends before Run has returned, Shutdown returns ctx.Err()
// without closing the worker pool or the descriptors.
func (r *Reactor) Shutdown(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.wake.raise()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.pool.Close()

	err := oerrors.Wrap(unix.Close(r.epfd), r.wake.close())
	return err
}
