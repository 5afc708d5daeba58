package waitqueue

import (
	"testing"
	"time"
)

func TestNotifyBeforeWait(t *testing.T) {
	q := New()
	q.Notify()

	if !q.Wait(10 * time.Millisecond) {
		t.Error("expected a pending notify to satisfy Wait")
	}
}

func TestWaitTimesOut(t *testing.T) {
	q := New()

	if q.Wait(5 * time.Millisecond) {
		t.Error("expected Wait to time out with no notify")
	}
}

func TestNotifyWakesWaiter(t *testing.T) {
	q := New()
	done := make(chan bool, 1)

	go func() {
		done <- q.Wait(time.Second)
	}()

	time.Sleep(5 * time.Millisecond)
	q.Notify()

	select {
	case ok := <-done:
		if !ok {
			t.Error("expected Wait to return true on notify")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Notify")
	}
}

func TestNotifyCollapses(t *testing.T) {
	q := New()
	q.Notify()
	q.Notify()
	q.Notify()

	if !q.Wait(10 * time.Millisecond) {
		t.Error("expected first Wait to consume the pending notify")
	}

	if q.Wait(5 * time.Millisecond) {
		t.Error("expected second Wait to time out, multiple Notify calls must collapse")
	}
}
