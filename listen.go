package reactor

import (
	"net"

	"golang.org/x/sys/unix"
)

// ListenBacklog is the backlog passed to listen(2) (§6).
const ListenBacklog = 128

// listenTCP creates a non-blocking IPv4 TCP listening socket bound to
// host:port with SO_REUSEADDR set, mirroring the teacher's own
// InitEpoll (epoll.go) socket bring-up sequence.
func listenTCP(host string, port uint16) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}

	addr := unix.SockaddrInet4{Port: int(port)}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		ip = net.IPv4zero
	}
	copy(addr.Addr[:], ip.To4())

	if err = unix.Bind(fd, &addr); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	if err = unix.Listen(fd, ListenBacklog); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}

	return fd, nil
}
