//go:build linux

package xnet

import (
	"net"

	"golang.org/x/sys/unix"
)

func ipToSockaddr(ip net.IP, port int) *unix.SockaddrInet4 {
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip.To4())
	return sa
}

func sockaddrToIPPort(sa unix.Sockaddr) (net.IP, int) {
	if v4, ok := sa.(*unix.SockaddrInet4); ok {
		ip := make(net.IP, net.IPv4len)
		copy(ip, v4.Addr[:])
		return ip, v4.Port
	}
	return nil, 0
}

// newNonblockingStreamSocket creates a non-blocking TCP socket with
// SO_REUSEADDR set, per spec.md §4.3's listen()/connect() preamble.
func newNonblockingStreamSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func bindAndListen(fd int, ip net.IP, port, backlog int) error {
	if err := unix.Bind(fd, ipToSockaddr(ip, port)); err != nil {
		return err
	}
	return unix.Listen(fd, backlog)
}

// acceptNonblocking accepts one pending connection. destroyed reports
// whether the error means the listening socket itself is gone
// (EBADF/ENOTSOCK per spec.md §4.3), as opposed to a transient
// condition like EAGAIN that leaves listener state unchanged.
func acceptNonblocking(listenFd int) (fd int, peer net.IP, port int, destroyed bool, err error) {
	nfd, sa, acceptErr := unix.Accept4(listenFd, unix.SOCK_NONBLOCK)
	if acceptErr != nil {
		if acceptErr == unix.EBADF || acceptErr == unix.ENOTSOCK {
			return -1, nil, 0, true, acceptErr
		}
		return -1, nil, 0, false, acceptErr
	}
	ip, p := sockaddrToIPPort(sa)
	return nfd, ip, p, false, nil
}

// dialNonblocking initiates a non-blocking connect; EINPROGRESS is
// success per spec.md §4.3.
func dialNonblocking(ip net.IP, port int) (fd int, err error) {
	fd, err = newNonblockingStreamSocket()
	if err != nil {
		return -1, err
	}
	connErr := unix.Connect(fd, ipToSockaddr(ip, port))
	if connErr != nil && connErr != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, connErr
	}
	return fd, nil
}

func isRetryableIOErr(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}

func closeFD(fd int) error {
	return unix.Close(fd)
}

// newNonblockingDgramSocket creates a non-blocking UDP socket, used by
// the datagram driver (udp_driver.go).
func newNonblockingDgramSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func bindDgram(fd int, ip net.IP, port int) error {
	return unix.Bind(fd, ipToSockaddr(ip, port))
}

func connectDgram(fd int, ip net.IP, port int) error {
	return unix.Connect(fd, ipToSockaddr(ip, port))
}

// recvfromNonblocking reads one datagram, returning the sender address.
func recvfromNonblocking(fd int, buf []byte) (n int, peer net.IP, port int, err error) {
	n, sa, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		return 0, nil, 0, err
	}
	ip, p := sockaddrToIPPort(sa)
	return n, ip, p, nil
}

func sendtoNonblocking(fd int, data []byte, ip net.IP, port int) error {
	return unix.Sendto(fd, data, 0, ipToSockaddr(ip, port))
}
