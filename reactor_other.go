//go:build !linux

package xnet

import "time"

// reactor is the non-Linux fallback. The reactor is built directly on
// epoll (see reactor_linux.go), and the stream and datagram drivers are
// built only on Linux, so a non-Linux build of this package has no
// driver to register. This stub keeps the reactor type defined; every
// call on it fails (newReactor with CodeReactorInitFailed, the rest
// with CodeUnsupported) rather than degrading to blocking I/O.
type reactor struct{}

// reactorEvent mirrors the Linux definition so this file compiles.
type reactorEvent struct {
	fd       int
	readable bool
	writable bool
	errored  bool
}

func newReactor(wait time.Duration) (*reactor, error) {
	return nil, newError(CodeReactorInitFailed, errUnsupportedPlatform)
}

func (r *reactor) Close() error                         { return nil }
func (r *reactor) addRead(fd int) error                 { return newError(CodeUnsupported, errUnsupportedPlatform) }
func (r *reactor) setWritable(fd int, want bool) error  { return newError(CodeUnsupported, errUnsupportedPlatform) }
func (r *reactor) remove(fd int)                        {}
func (r *reactor) Wait() ([]reactorEvent, error)        { return nil, newError(CodeUnsupported, errUnsupportedPlatform) }
