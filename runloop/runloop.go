// Package runloop implements the deferred-job primitive spec §4.6 asks for:
// a cooperative, single-shot task that "runs later on the owner context,
// once per arming" (spec §9). It is the Go stand-in for BadVPN's BPending —
// the mechanism the Fair Packet Queue uses to break reentrancy between
// output.Done() and the next output.Send() (spec §4.3, §5).
//
// There is no goroutine or channel here: the owner context in this module
// is "whichever goroutine is currently calling into a Loop's owner", and
// Loop enforces the no-synchronous-reentry rule by batching. A Job armed
// while Run is dispatching a batch runs on the next turn of Run's own
// loop, never nested inside the fn that armed it — bounding stack depth to
// one frame per turn instead of one per packet. fairqueue.Queue calls Run at
// the end of both handlers that arm its job (a flow's send and the output's
// done), so its callers never need to pump the loop themselves.
package runloop

// Loop holds jobs armed by Job.Set but not yet run.
type Loop struct {
	pending []*Job
	running bool
}

// Job is a single-shot deferred call. The zero value is not usable; obtain
// one from Loop.NewJob.
type Job struct {
	loop  *Loop
	fn    func()
	armed bool
}

// NewJob creates a job bound to l that invokes fn when it fires.
func (l *Loop) NewJob(fn func()) *Job {
	return &Job{loop: l, fn: fn}
}

// Set arms the job if it isn't already armed. Idempotent: calling Set on an
// already-armed job has no effect (mirrors BPending_Set's single-flag
// semantics — there is one pending call per job, not a queue of them).
func (j *Job) Set() {
	if j.armed {
		return
	}
	j.armed = true
	j.loop.pending = append(j.loop.pending, j)
}

// Unset disarms the job. If Run has already captured this job in the batch
// it is currently dispatching, Unset still takes effect: Run checks armed
// immediately before invoking fn.
func (j *Job) Unset() {
	j.armed = false
}

// Run dispatches every job armed at the moment Run is called, then keeps
// dispatching newly-armed jobs on subsequent turns until none remain.
//
// Run is reentrant-safe by being a no-op when called while already
// running: if a job's fn calls Run (directly, or indirectly through a
// callback chain that loops back into this Loop), the nested call returns
// immediately, and the outer call's own "for len(pending) > 0" turn picks
// up whatever that fn armed. This is what keeps a chain of synchronous
// done-then-send callbacks from growing the call stack per packet — every
// nested reentry unwinds one frame instead of recursing one deeper.
func (l *Loop) Run() {
	if l.running {
		return
	}
	l.running = true
	defer func() { l.running = false }()

	for len(l.pending) > 0 {
		batch := l.pending
		l.pending = nil
		for _, j := range batch {
			if !j.armed {
				continue
			}
			j.armed = false
			j.fn()
		}
	}
}
