package errors

import "log"

// Logger is the ambient sink for runtime data faults (spec §7's second
// class of fault: malformed frame, bad hash, replayed OTP, missing key).
// These are never surfaced as return values across a PacketPass boundary;
// they are logged once and the offending packet is dropped.
type Logger interface {
	Log(err error)
}

// NopLogger discards everything. Useful in tests where a data fault is
// expected and asserting on it would just be testing the logger.
type NopLogger struct{}

func (NopLogger) Log(error) {}

// StdLogger adapts the standard library's *log.Logger. Severity is
// rendered as a prefix; callers who want leveled filtering should wrap
// Log and check SeverityOf themselves before delegating.
type StdLogger struct {
	L *log.Logger
}

func (s StdLogger) Log(err error) {
	if err == nil || s.L == nil {
		return
	}
	sev := SeverityOf(err)
	if sev == SeverityUnspecified {
		sev = SeverityWarning
	}
	s.L.Printf("[%s] %v", sev, err)
}
