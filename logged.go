package linkbus

import (
	"time"

	"github.com/charmbracelet/log"
)

// LoggedLink is a Link decorator that logs writes and/or reads. It
// replaces the teacher's hand-rolled StructuredLogger interface (which
// notnil/canbus's own logged_test.go didn't even use consistently, reaching
// for log/slog instead) with the one real leveled-logging dependency used
// throughout this repo.
type LoggedLink struct {
	inner     Link
	logger    *log.Logger
	logReads  bool
	logWrites bool
}

// NewLoggedLink wraps inner, logging writes and/or reads at debug level
// when enabled.
func NewLoggedLink(inner Link, logger *log.Logger, logReads, logWrites bool) *LoggedLink {
	return &LoggedLink{inner: inner, logger: logger, logReads: logReads, logWrites: logWrites}
}

func (l *LoggedLink) Available(timeout time.Duration) (bool, error) {
	return l.inner.Available(timeout)
}

func (l *LoggedLink) ReadInto(buf []byte) (int, error) {
	n, err := l.inner.ReadInto(buf)
	if l.logReads {
		if err != nil {
			l.logger.Error("link read error", "error", err)
		} else if n > 0 {
			l.logger.Debug("link read", "bytes", n, "data", buf[:n])
		}
	}
	return n, err
}

func (l *LoggedLink) Write(b []byte) error {
	err := l.inner.Write(b)
	if l.logWrites {
		if err != nil {
			l.logger.Error("link write error", "error", err, "bytes", len(b))
		} else {
			l.logger.Debug("link write", "bytes", len(b), "data", b)
		}
	}
	return err
}

func (l *LoggedLink) Close() error {
	return l.inner.Close()
}
