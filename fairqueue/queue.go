// Package fairqueue implements the Fair Packet Queue: start-time fair
// queueing with a virtual clock per flow, multiplexing many producer-side
// PacketPass channels onto one downstream PacketPass channel.
//
// Grounded on BadVPN's PacketPassFairQueue.h (retrieved as
// original_source/trunk/flow/PacketPassFairQueue.h): a min-heap of flows
// keyed by virtual time, a deferred scheduling job to avoid calling the
// output synchronously from within its own done callback, and rebase-on-
// overflow to keep vt bounded. The heap and job primitives live in
// sibling packages (heap, runloop); this package is the scheduler itself.
package fairqueue

import (
	"math"

	"github.com/reflexdp/dataplane/assert"
	"github.com/reflexdp/dataplane/errors"
	"github.com/reflexdp/dataplane/heap"
	"github.com/reflexdp/dataplane/packetpass"
	"github.com/reflexdp/dataplane/runloop"
)

// MaxTime is the default ceiling on any flow's virtual time before a
// rebase becomes mandatory. The original's FAIRQUEUE_MAX_TIME is
// UINT64_MAX in production but its header comments note it can be
// lowered to exercise the overflow path in tests; WithMaxTime exposes
// that same knob here (spec §9's rebase note; SPEC_FULL's supplemented
// testability feature).
const MaxTime = math.MaxUint64

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithMaxTime overrides the default MaxTime, letting tests reach the
// rebase path without billions of packets.
func WithMaxTime(max uint64) Option {
	return func(q *Queue) { q.maxTime = max }
}

// Queue is the Fair Packet Queue. The zero value is not usable; construct
// with New.
type Queue struct {
	output       *packetpass.Channel
	useCancel    bool
	packetWeight uint64
	maxTime      uint64

	flows []*Flow
	heap  heap.Heap

	sendingFlow  *Flow
	sendingLen   int
	previousFlow *Flow

	freeing bool
	nextSeq uint64

	loop        *runloop.Loop
	scheduleJob *runloop.Job
}

// New creates a Queue delivering into output. packetWeight must be
// positive (spec §9's open question: this module rejects 0 outright
// rather than accepting it and relying on the MTU precondition to make
// it harmless). Fails if output.MTU()+packetWeight would already exceed
// the effective max time (spec §4.2's init precondition).
func New(output *packetpass.Channel, useCancel bool, packetWeight uint64, opts ...Option) (*Queue, error) {
	if packetWeight == 0 {
		return nil, errors.New("fairqueue: packet_weight must be positive").AtError()
	}
	q := &Queue{
		output:       output,
		useCancel:    useCancel,
		packetWeight: packetWeight,
		maxTime:      MaxTime,
	}
	for _, opt := range opts {
		opt(q)
	}
	if uint64(output.MTU())+packetWeight > q.maxTime {
		return nil, errors.New("fairqueue: output mtu + packet_weight exceeds max time").AtError()
	}
	q.loop = &runloop.Loop{}
	q.scheduleJob = q.loop.NewJob(q.trySend)
	output.SetDoneHandler(q.handleOutputDone)
	return q, nil
}

// FlowInit attaches flow to the queue: vt starts at 0, not queued (spec
// §4.2). Must not be called while a send is in progress on flow's own
// input channel (forbidden nesting, spec §4.3) or while the queue is
// freeing.
func (q *Queue) FlowInit(f *Flow) {
	assert.That(!q.freeing, "flow_init: queue is freeing")
	f.queue = q
	f.vt = 0
	f.queued = false
	f.queuedData = nil
	f.Base.Reset()
	f.input = packetpass.New(q.output.MTU())
	f.input.Init(func(buf []byte) { q.handleFlowSend(f, buf) })
	q.flows = append(q.flows, f)
}

// FlowFree detaches flow. Valid when the flow is not busy, or when the
// queue has entered its freeing state (spec §4.2).
func (q *Queue) FlowFree(f *Flow) {
	assert.That(!f.IsBusy() || q.freeing, "flow_free: flow is busy")
	q.removeFlow(f)
}

func (q *Queue) removeFlow(f *Flow) {
	if f.queued {
		q.heap.Remove(f)
		f.queued = false
	}
	for i, other := range q.flows {
		if other == f {
			q.flows[i] = q.flows[len(q.flows)-1]
			q.flows = q.flows[:len(q.flows)-1]
			break
		}
	}
	if q.sendingFlow == f {
		q.sendingFlow = nil
	}
	if q.previousFlow == f {
		q.previousFlow = nil
	}
	f.queue = nil
}

// FlowIsBusy reports whether flow has a packet queued or in flight.
func (q *Queue) FlowIsBusy(f *Flow) bool { return f.IsBusy() }

// FlowRequestCancel forwards a cancellation hint to the output. Only
// meaningful for the flow currently being sent — cancelling a flow that
// is merely queued is rejected (spec §4.3): nothing has been handed to
// the output yet, so there is nothing to cancel; freeing is the way to
// remove a queued-but-not-sending flow instead.
func (q *Queue) FlowRequestCancel(f *Flow) {
	assert.That(q.useCancel, "flow_request_cancel: cancel not enabled")
	assert.That(f.IsBusy(), "flow_request_cancel: flow not busy")
	assert.That(!q.freeing, "flow_request_cancel: queue is freeing")
	assert.That(f == q.sendingFlow, "flow_request_cancel: flow is queued but not sending")
	q.output.RequestCancel()
}

// FlowSetBusyHandler registers cb to fire every time flow's busy state
// transitions to false, before any re-queue (spec §4.2: "must not drop
// the notification"). The handler persists across firings — it is not
// one-shot — until the caller replaces it or disarms it with a nil cb.
func (q *Queue) FlowSetBusyHandler(f *Flow, cb func()) {
	f.busyHandler = cb
}

// PrepareFree enters the freeing state: flow_free becomes valid
// regardless of busy, and the scheduler stops calling output.Send (spec
// §4.3's freeing-state rules). The queue itself must not be used for any
// further I/O afterward.
func (q *Queue) PrepareFree() {
	q.freeing = true
}

// Stats is a point-in-time snapshot of queue occupancy, an ambient
// addition for observability (SPEC_FULL §4.2/§4.3) — it does not affect
// scheduling.
type Stats struct {
	AttachedFlows int
	QueuedFlows   int
	Sending       bool
}

// Stats returns a snapshot of the queue's current occupancy.
func (q *Queue) Stats() Stats {
	return Stats{
		AttachedFlows: len(q.flows),
		QueuedFlows:   q.heap.Len(),
		Sending:       q.sendingFlow != nil,
	}
}

// handleFlowSend is flow's PacketPass onSend handler: it runs
// synchronously inside flow.Input().Send, with the channel already
// marked in-flight (spec §3's busy definition covers exactly this span,
// through the eventual Done in handleOutputDone).
func (q *Queue) handleFlowSend(f *Flow, buf []byte) {
	assert.That(!q.freeing, "flow send: queue is freeing")

	cost := uint64(len(buf)) + q.packetWeight
	if f.vt > q.maxTime-cost {
		q.rebase()
		if f.vt > q.maxTime-cost {
			panic(errors.New("fairqueue: virtual time would overflow after rebase; misconfigured max time").AtError())
		}
	}
	f.vt += cost

	f.queuedData = buf
	f.queued = true
	f.seq = q.nextSeq
	q.nextSeq++
	q.heap.Push(f)

	if q.sendingFlow == nil {
		q.scheduleJob.Set()
	}
	q.loop.Run()
}

// rebase subtracts the minimum vt across every attached flow from every
// attached flow's vt (spec §4.3 step 2). previousFlow needs no special
// case: it is always a member of q.flows until freed, at which point
// removeFlow clears the pointer, so the loop below already rebases it.
func (q *Queue) rebase() {
	if len(q.flows) == 0 {
		return
	}
	min := q.flows[0].vt
	for _, f := range q.flows[1:] {
		if f.vt < min {
			min = f.vt
		}
	}
	if min == 0 {
		return
	}
	for _, f := range q.flows {
		f.vt -= min
	}
}

// trySend is the deferred scheduler (spec §4.3). It only ever runs as a
// job dispatched by q.loop.Run, never inline from output.Done, so it is
// safe for it to call output.Send even if the previous output.Done fired
// synchronously from within a prior output.Send.
func (q *Queue) trySend() {
	if q.freeing || q.sendingFlow != nil || !q.output.IsIdle() {
		return
	}
	if q.heap.Len() == 0 {
		return
	}
	f := q.heap.Pop().(*Flow)
	f.queued = false

	q.sendingFlow = f
	data := f.queuedData
	f.queuedData = nil
	q.sendingLen = len(data)
	f.delivered++

	q.output.Send(data)
}

// handleOutputDone is registered with the output channel's SetDoneHandler
// at construction. It releases the sending flow's own input channel
// first — that is the moment busy actually becomes false — and only then
// fires the busy_handler, so a busy_handler that turns around and calls
// Input().Send() to offer the flow's next packet is calling into an
// already-idle channel, not a still-in-flight one (spec §4.2: cb fires
// "before any re-queue" — nothing can re-queue this flow between Done and
// the handler call, since nothing else runs in between).
func (q *Queue) handleOutputDone() {
	f := q.sendingFlow
	q.previousFlow = f
	q.sendingFlow = nil
	q.sendingLen = 0

	if f != nil {
		f.input.Done()
		if cb := f.busyHandler; cb != nil {
			cb()
		}
	}

	q.scheduleJob.Set()
	q.loop.Run()
}
