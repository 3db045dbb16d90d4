package xnet

import (
	"os/signal"
	"syscall"
)

// Driver is the pluggable capability a Facade dispatches to by scheme.
// Implementations are the stream (StreamDriver) and datagram
// (DatagramDriver) drivers in this package, but any type satisfying
// this interface can be registered with AddDriver.
type Driver interface {
	Prefix() string
	Init(driverIndex int, cfg *Config, cb Callbacks) error
	Bind(addr string) (Handle, error)
	Connect(addr string) (Handle, error)
	Send(h Handle, data []byte) error
	SendVectored(h Handle, fragments [][]byte) error
	Close(h Handle) error
	Update() (int, error)
}

// Facade is the scheme-multiplexed entry point described in
// SPEC_FULL.md §4.5: every transport operation is addressed either by
// "scheme://host:port" (Bind/Connect) or by the Handle a prior call
// returned (Send/Close), and Update() pumps every registered driver
// exactly once per call.
type Facade struct {
	cfg        *Config
	callbacks  Callbacks
	byScheme   map[string]Driver
	byIndex    [MaxDrivers]Driver
	numDrivers int
}

// NewFacade constructs an uninitialized façade; call Init before
// registering drivers.
func NewFacade(opts ...Option) *Facade {
	return &Facade{cfg: applyConfig(opts), byScheme: make(map[string]Driver)}
}

// Init installs the application's callback set. SIGPIPE is ignored
// here: a non-blocking writer observes a dead peer as EPIPE on the
// next write, not as a process-terminating signal.
func (f *Facade) Init(cb Callbacks) error {
	if err := f.cfg.Validate(); err != nil {
		return err
	}
	signal.Ignore(syscall.SIGPIPE)
	f.callbacks = cb
	return nil
}

// AddDriver registers driver under its own Prefix(). It fails if the
// registry is full (MaxDrivers, bounded by the handle's 3-bit driver
// index) or if the scheme is already taken.
func (f *Facade) AddDriver(driver Driver) error {
	scheme := driver.Prefix()
	if _, exists := f.byScheme[scheme]; exists {
		return newError(CodeDriverAlreadyRegistered, nil)
	}
	if f.numDrivers >= MaxDrivers {
		return newError(CodeUninstallDriver, nil)
	}
	idx := f.numDrivers
	if err := driver.Init(idx, f.cfg, f.callbacks); err != nil {
		return err
	}
	f.byScheme[scheme] = driver
	f.byIndex[idx] = driver
	f.numDrivers++
	return nil
}

func (f *Facade) driverFor(url string) (Driver, string, error) {
	scheme, addr, ok := splitSchemeAddr(url)
	if !ok {
		return nil, "", newError(CodeInvalidParam, nil)
	}
	d, ok := f.byScheme[scheme]
	if !ok {
		return nil, "", newError(CodeUninstallDriver, nil)
	}
	return d, addr, nil
}

// Bind parses url's scheme and dispatches to the matching driver's
// Bind, e.g. Bind("tcp://0.0.0.0:9000").
func (f *Facade) Bind(url string) (Handle, error) {
	d, addr, err := f.driverFor(url)
	if err != nil {
		return InvalidHandle, err
	}
	return d.Bind(addr)
}

// Connect parses url's scheme and dispatches to the matching driver's
// Connect, e.g. Connect("tcp://10.0.0.1:9000").
func (f *Facade) Connect(url string) (Handle, error) {
	d, addr, err := f.driverFor(url)
	if err != nil {
		return InvalidHandle, err
	}
	return d.Connect(addr)
}

func (f *Facade) driverForHandle(h Handle) (Driver, error) {
	if !h.Valid(f.numDrivers) {
		return nil, newError(CodeInvalidHandle, nil)
	}
	d := f.byIndex[h.DriverIndex()]
	if d == nil {
		return nil, newError(CodeUninstallDriver, nil)
	}
	return d, nil
}

func (f *Facade) Send(h Handle, data []byte) error {
	d, err := f.driverForHandle(h)
	if err != nil {
		return err
	}
	return d.Send(h, data)
}

func (f *Facade) SendVectored(h Handle, fragments [][]byte) error {
	d, err := f.driverForHandle(h)
	if err != nil {
		return err
	}
	return d.SendVectored(h, fragments)
}

func (f *Facade) Close(h Handle) error {
	d, err := f.driverForHandle(h)
	if err != nil {
		return err
	}
	return d.Close(h)
}

// Update pumps every registered driver exactly once and returns the
// total number of events handled across all of them (spec.md §8
// invariant 6: zero ready events anywhere returns 0). Drivers are
// pumped one after another, so a call can block for up to the sum of
// the drivers' configured waits.
func (f *Facade) Update() (int, error) {
	total := 0
	for i := 0; i < f.numDrivers; i++ {
		n, err := f.byIndex[i].Update()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
