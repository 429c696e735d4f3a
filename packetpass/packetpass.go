// Package packetpass implements the PacketPass channel from spec §3/§4.1:
// a unidirectional, single-packet-in-flight push channel with explicit
// done-signalling and an optional cooperative cancel hint.
//
// The shape mirrors how the teacher's tunnel package wraps a raw io.Writer
// with a purpose-built adapter (DataFrameWriter/DataFrameReader) rather
// than exposing io.Reader/io.Writer directly: PacketPass is not a stream,
// it is a state machine with exactly one packet outstanding at a time, and
// modeling it as one keeps that invariant in the type instead of in caller
// discipline.
package packetpass

import "github.com/reflexdp/dataplane/errors"

// state is the channel's idle/in-flight state (spec §3).
type state uint8

const (
	stateIdle state = iota
	stateInFlight
)

// Channel is a PacketPass channel. The receiver (consumer) side calls Init
// once to register how it wants to be told about new packets; the sender
// (producer) side calls Send. Both sides may be different goroutines only
// insofar as they respect the "single owner context" rule from spec §5 —
// Channel itself does no locking.
type Channel struct {
	mtu   int
	state state

	onSend   func(buf []byte)
	onDone   func()
	onCancel func()
}

// New creates a channel with a fixed MTU. mtu must be positive.
func New(mtu int) *Channel {
	if mtu <= 0 {
		panic("packetpass: mtu must be positive")
	}
	return &Channel{mtu: mtu, state: stateIdle}
}

// MTU returns the fixed maximum packet size for this channel.
func (c *Channel) MTU() int { return c.mtu }

// Init registers the receiver's send handler. Must be called before Send.
func (c *Channel) Init(onSend func(buf []byte)) {
	c.onSend = onSend
}

// SetDoneHandler registers the sender's done handler, invoked when the
// receiver calls Done. Optional: a sender that doesn't care when the
// packet finishes (fire-and-forget) may leave this unset.
func (c *Channel) SetDoneHandler(onDone func()) {
	c.onDone = onDone
}

// SetCancelHandler registers the receiver-side hook invoked by
// RequestCancel. Optional; if unset, RequestCancel is a no-op, which is
// always a legal response to a cancel hint (spec §4.3: "the output may
// still deliver the packet ... either is valid").
func (c *Channel) SetCancelHandler(onCancel func()) {
	c.onCancel = onCancel
}

// IsIdle reports whether the channel can accept a Send.
func (c *Channel) IsIdle() bool { return c.state == stateIdle }

// Send delivers buf to the receiver. len(buf) must be <= MTU. buf is
// borrowed by the receiver for the entire in-flight interval (spec §5);
// the sender must not reuse it until Done fires.
//
// Calling Send while a packet is already in flight is a programming error
// (spec §4.1); it always panics, in release builds too, as do a buf longer
// than the MTU and a Send with no receiver registered.
func (c *Channel) Send(buf []byte) {
	if c.state != stateIdle {
		panic(errors.New("packetpass: send while in-flight").AtError())
	}
	if len(buf) > c.mtu {
		panic(errors.New("packetpass: send exceeds mtu").AtError())
	}
	if c.onSend == nil {
		panic(errors.New("packetpass: send with no receiver").AtError())
	}
	c.state = stateInFlight
	c.onSend(buf)
}

// Done is called by the receiver once it has finished with the in-flight
// packet. It is safe to call synchronously from within the onSend handler
// (spec §4.1's reentrancy requirement) — Channel only flips its own state
// here; any follow-on scheduling work is the caller's responsibility to
// defer via runloop.
func (c *Channel) Done() {
	if c.state != stateInFlight {
		panic(errors.New("packetpass: done while idle").AtError())
	}
	c.state = stateIdle
	if c.onDone != nil {
		c.onDone()
	}
}

// RequestCancel is an idempotent hint from the sender that it would prefer
// the receiver to abandon the in-flight packet. The receiver may ignore it.
func (c *Channel) RequestCancel() {
	if c.onCancel != nil {
		c.onCancel()
	}
}
