package xnet

import "github.com/sirupsen/logrus"

// defaultLogger is used when a Config carries no explicit logger. It
// logs at Warn by default so an embedder doesn't get paged by routine
// reconnects; replace it with SetLogger, or scope one instance with
// WithLogger, for more detail.
var defaultLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}()

// SetLogger replaces the package-wide default logger.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// WithLogger attaches a logrus entry to a driver/façade instance,
// overriding the package default for that instance only.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Config) {
		if entry != nil {
			c.log = entry
		}
	}
}

// driverLogger resolves the logrus entry a driver should log through:
// the one the Config carries, or a fresh entry off the package default.
func driverLogger(cfg *Config, driverName string) *logrus.Entry {
	base := cfg.log
	if base == nil {
		base = logrus.NewEntry(defaultLogger)
	}
	return base.WithField("driver", driverName)
}
