package fairqueue

import (
	"github.com/reflexdp/dataplane/heap"
	"github.com/reflexdp/dataplane/packetpass"
)

// Flow is one logical sub-stream multiplexed through a Queue's output. A
// Flow is inert until passed to Queue.FlowInit, which attaches it and gives
// it a channel sized to the queue's output MTU.
//
// Flow embeds heap.Base so it can sit directly in the queue's min-heap
// without a separate wrapper type; VT/Seq below satisfy heap.Item together
// with the promoted, unexported index bookkeeping from heap.Base.
type Flow struct {
	heap.Base

	queue *Queue
	input *packetpass.Channel

	vt  uint64
	seq uint64

	queued     bool
	queuedData []byte

	busyHandler func()

	delivered uint64
}

// NewFlow allocates an unattached flow. Call Queue.FlowInit before use.
func NewFlow() *Flow {
	f := &Flow{}
	f.Base.Reset()
	return f
}

// VT returns the flow's current virtual time, satisfying heap.Item.
func (f *Flow) VT() uint64 { return f.vt }

// Seq returns the insertion sequence assigned at the flow's last enqueue,
// satisfying heap.Item and giving FIFO tie-breaking among equal vt (spec
// §4.3's tie-breaking rule).
func (f *Flow) Seq() uint64 { return f.seq }

// Input returns the PacketPass channel a producer sends packets into.
// Valid only after Queue.FlowInit.
func (f *Flow) Input() *packetpass.Channel { return f.input }

// IsBusy reports whether the flow has a packet queued or in flight at the
// queue's output (spec §3: busy iff queued OR sending). This is exactly
// the input channel's in-flight state, since Send puts it in flight at
// enqueue and only the eventual Done, fired once the packet has cleared
// the queue's output, releases it.
func (f *Flow) IsBusy() bool {
	return f.input != nil && !f.input.IsIdle()
}

// AssertFree is a debug-only hook a caller may invoke immediately before
// freeing a flow it believes is idle. It does nothing at runtime; it
// exists because some callers structure teardown around calling it
// unconditionally, mirroring PacketPassFairQueueFlow_AssertFree in the
// original source.
func (f *Flow) AssertFree() {}

// Delivered returns the number of packets this flow has had accepted by
// the queue's output so far. Ambient addition for observability; not part
// of the scheduling contract.
func (f *Flow) Delivered() uint64 { return f.delivered }
