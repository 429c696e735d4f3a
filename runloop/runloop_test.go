package runloop

import "testing"

func TestSetIsIdempotent(t *testing.T) {
	l := &Loop{}
	calls := 0
	j := l.NewJob(func() { calls++ })
	j.Set()
	j.Set()
	l.Run()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestUnsetBeforeRunSuppressesFire(t *testing.T) {
	l := &Loop{}
	calls := 0
	j := l.NewJob(func() { calls++ })
	j.Set()
	j.Unset()
	l.Run()
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}

func TestJobArmedDuringRunFiresOnNextTurn(t *testing.T) {
	l := &Loop{}
	var order []string
	var second *Job
	first := l.NewJob(func() {
		order = append(order, "first")
		second.Set()
	})
	second = l.NewJob(func() {
		order = append(order, "second")
	})
	first.Set()
	l.Run()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

func TestRunIsReentrantSafe(t *testing.T) {
	l := &Loop{}
	var depth int
	var maxDepth int
	var job *Job
	remaining := 5
	job = l.NewJob(func() {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		if remaining > 0 {
			remaining--
			job.Set()
			l.Run() // reentrant call: must not recurse into job.fn again here
		}
		depth--
	})
	job.Set()
	l.Run()
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if maxDepth != 1 {
		t.Fatalf("maxDepth = %d, want 1 (no nested fn invocation)", maxDepth)
	}
}
