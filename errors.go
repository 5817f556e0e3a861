package reactor

import "errors"

// Sentinel errors for the taxonomy described in the specification. Callers
// use errors.Is against these; wrapped causes are attached with fmt.Errorf's
// %w or go.osspkg.com/errors.Wrap where more than one failure needs folding
// together (see Reactor.Shutdown).
var (
	// ErrAlreadyRegistered is returned by Register when the handle is
	// already present in the registry.
	ErrAlreadyRegistered = errors.New("reactor: handle already registered")

	// ErrNotRegistered is returned by Unregister when the handle is not in
	// the registry.
	ErrNotRegistered = errors.New("reactor: handle not registered")

	// ErrPeerClosed marks a connection that closed cleanly (recv returned 0).
	ErrPeerClosed = errors.New("reactor: peer closed connection")

	// ErrIOFailure is returned when the read-buffer pool hands back a value
	// of the wrong type. Read failures on a connection are logged with the
	// raw syscall error, not wrapped in this value.
	ErrIOFailure = errors.New("reactor: i/o failure")

	// ErrReadinessSpurious marks a non-EINTR error from epoll_wait itself.
	ErrReadinessSpurious = errors.New("reactor: readiness primitive error")

	// ErrStaleContinuation marks a continuation that ran against a handle
	// which was closed before the continuation got a chance to run. The
	// underlying write/close error is swallowed; this exists only for
	// logging classification.
	ErrStaleContinuation = errors.New("reactor: continuation ran against closed handle")

	// ErrSetupFailure marks a fatal failure during listener/epoll bring-up.
	ErrSetupFailure = errors.New("reactor: setup failure")

	// ErrTaskPanicked marks a compute closure that panicked; the pool
	// recovers it and reports it to the continuation as this error.
	ErrTaskPanicked = errors.New("reactor: task compute panicked")

	// ErrClosed is returned by operations attempted after Shutdown.
	ErrClosed = errors.New("reactor: closed")
)
