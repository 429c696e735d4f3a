package packetpass

import "testing"

func TestSendDoneRoundTrip(t *testing.T) {
	ch := New(16)

	var got []byte
	ch.Init(func(buf []byte) {
		got = append([]byte(nil), buf...)
	})

	var doneCalled bool
	ch.SetDoneHandler(func() { doneCalled = true })

	if !ch.IsIdle() {
		t.Fatalf("expected idle before send")
	}
	ch.Send([]byte("hello"))
	if ch.IsIdle() {
		t.Fatalf("expected in-flight after send")
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	ch.Done()
	if !ch.IsIdle() {
		t.Fatalf("expected idle after done")
	}
	if !doneCalled {
		t.Fatalf("expected done handler to fire")
	}
}

func TestDoneCalledSynchronouslyFromSend(t *testing.T) {
	ch := New(16)
	var doneCalled bool
	ch.SetDoneHandler(func() { doneCalled = true })
	ch.Init(func(buf []byte) {
		// Reentrant done, as spec §4.1 requires implementations to tolerate.
		ch.Done()
	})

	ch.Send([]byte("x"))
	if !ch.IsIdle() {
		t.Fatalf("expected idle after reentrant done")
	}
	if !doneCalled {
		t.Fatalf("expected done handler to fire")
	}
}

func TestSendWhileInFlightPanics(t *testing.T) {
	ch := New(16)
	ch.Init(func([]byte) {})
	ch.Send([]byte("x"))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic sending while in-flight")
		}
	}()
	ch.Send([]byte("y"))
}

func TestSendExceedingMTUPanics(t *testing.T) {
	ch := New(4)
	ch.Init(func([]byte) {})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic exceeding mtu")
		}
	}()
	ch.Send([]byte("too long"))
}

func TestRequestCancelWithoutHandlerIsNoop(t *testing.T) {
	ch := New(16)
	ch.Init(func([]byte) {})
	ch.Send([]byte("x"))
	ch.RequestCancel() // must not panic
	ch.Done()
}

func TestRequestCancelForwards(t *testing.T) {
	ch := New(16)
	var canceled bool
	ch.SetCancelHandler(func() { canceled = true })
	ch.Init(func([]byte) {})
	ch.Send([]byte("x"))
	ch.RequestCancel()
	ch.RequestCancel() // idempotent
	if !canceled {
		t.Fatalf("expected cancel handler to fire")
	}
	ch.Done()
}
