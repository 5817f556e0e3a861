package reactor

import (
	"golang.org/x/sys/unix"

	oerrors "go.osspkg.com/errors"
	"go.osspkg.com/logx"
)

// AcceptorHandler owns a non-blocking listening handle and installs a
// ConnectionHandler for each accepted client (§4.4).
type AcceptorHandler struct {
	fd      int
	reactor *Reactor
	log     logx.Logger
	bufs    *bufferPool
}

// NewAcceptorHandler wraps an already-listening, non-blocking fd. Use
// ListenAndRegister to create and register one in a single step.
func NewAcceptorHandler(fd int, reactor *Reactor, log logx.Logger, bufs *bufferPool) *AcceptorHandler {
	return &AcceptorHandler{fd: fd, reactor: reactor, log: log, bufs: bufs}
}

// ListenAndRegister binds and listens on host:port, then registers the
// resulting AcceptorHandler with reactor.
func ListenAndRegister(reactor *Reactor, host string, port uint16, log logx.Logger, bufs *bufferPool) (*AcceptorHandler, error) {
	fd, err := listenTCP(host, port)
	if err != nil {
		return nil, oerrors.Wrap(ErrSetupFailure, err)
	}
	a := NewAcceptorHandler(fd, reactor, log, bufs)
	if err := reactor.Register(a); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return a, nil
}

func (a *AcceptorHandler) Handle() int { return a.fd }

// OnReadable loops accept4 until EAGAIN/EWOULDBLOCK (§4.4). Accept errors
// of any other kind are logged and the current batch ends, leaving the
// acceptor registered for the next readiness notification.
func (a *AcceptorHandler) OnReadable() {
	for {
		clientFd, _, err := unix.Accept4(a.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if a.log != nil {
				a.log.WithFields(logx.Fields{"err": err.Error()}).Errorf("reactor: accept failed")
			}
			return
		}

		conn := NewConnectionHandler(clientFd, a.reactor, a.log, a.bufs)
		if err := a.reactor.Register(conn); err != nil {
			if a.log != nil {
				a.log.WithFields(logx.Fields{"err": err.Error(), "fd": clientFd}).Errorf("reactor: register connection failed")
			}
			_ = unix.Close(clientFd)
		}
	}
}

func (a *AcceptorHandler) OnWritable() {}
