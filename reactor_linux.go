//go:build linux

package xnet

import (
	"time"

	"golang.org/x/sys/unix"
)

// reactor wraps a single epoll instance. It is the non-blocking
// readiness loop spec.md §5 calls the "single-threaded cooperative
// reactor" — every fd a driver owns is registered here, and Wait is
// only ever called from the goroutine driving that driver's Update().
//
// Grounded on the raw epoll accept/read loop in
// other_examples/d6f88aa8_anamulislamshamim-go_raw_epoll_http_server,
// ported from the untyped syscall package to golang.org/x/sys/unix.
type reactor struct {
	epfd   int
	wait   time.Duration
	events []unix.EpollEvent
}

func newReactor(wait time.Duration) (*reactor, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, newError(CodeReactorInitFailed, err)
	}
	return &reactor{epfd: fd, wait: wait, events: make([]unix.EpollEvent, 256)}, nil
}

func (r *reactor) Close() error {
	return unix.Close(r.epfd)
}

// addRead registers fd for read-readiness only (the state a fresh
// listener or connection starts in).
func (r *reactor) addRead(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return newError(CodeReactorInitFailed, err)
	}
	return nil
}

// setWritable arms or disarms EPOLLOUT on fd, preserving EPOLLIN. This
// backs the connection write-watcher rule in spec.md §4.3: armed only
// while the outbound staging cache for that handle is non-empty.
func (r *reactor) setWritable(fd int, want bool) error {
	events := uint32(unix.EPOLLIN)
	if want {
		events |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return newError(CodeReactorGetEventFailed, err)
	}
	return nil
}

func (r *reactor) remove(fd int) {
	// Best-effort: the fd may already be closed, which implicitly
	// drops it from the epoll set.
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// reactorEvent reports what a single fd became ready for.
type reactorEvent struct {
	fd       int
	readable bool
	writable bool
	errored  bool
}

// Wait polls for ready fds, blocking for at most r.wait. It returns an
// empty, nil-error slice when nothing became ready within the timeout,
// satisfying the "Update() with no ready events ... returns 0" bound
// (spec.md §8 invariant 6).
func (r *reactor) Wait() ([]reactorEvent, error) {
	timeoutMs := int(r.wait / time.Millisecond)
	if r.wait > 0 && timeoutMs == 0 {
		timeoutMs = 1
	}
	n, err := unix.EpollWait(r.epfd, r.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, newError(CodeReactorGetEventFailed, err)
	}
	out := make([]reactorEvent, 0, n)
	for i := 0; i < n; i++ {
		e := r.events[i]
		out = append(out, reactorEvent{
			fd:       int(e.Fd),
			readable: e.Events&unix.EPOLLIN != 0,
			writable: e.Events&unix.EPOLLOUT != 0,
			errored:  e.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	return out, nil
}
