package cmdmgr

import (
	"testing"
	"time"

	"github.com/sg2002/aic8800/driverr"
)

func TestPushAndConfirmRoundTrip(t *testing.T) {
	m := New()

	tok, err := m.Push(1024)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	if m.IsDone(tok) {
		t.Fatal("expected slot not done before confirm")
	}

	m.OnConfirm(1024, []byte{0xAA, 0xBB, 0xCC, 0xDD})

	if !m.IsDone(tok) {
		t.Fatal("expected slot done after matching confirm")
	}

	out := make([]byte, 8)
	n, err := m.TakeConfirm(tok, out)
	if err != nil {
		t.Fatalf("TakeConfirm: %v", err)
	}

	if n != 4 || out[0] != 0xAA || out[3] != 0xDD {
		t.Errorf("got n=%d out=%v", n, out[:n])
	}
}

func TestOnConfirmDropsUnmatchedMessageID(t *testing.T) {
	m := New()

	tok, err := m.Push(1024)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	// No slot has requestID 2025, so this confirm is silently dropped.
	m.OnConfirm(2025, []byte{0x01})

	if m.IsDone(tok) {
		t.Error("expected unmatched confirm to leave the slot untouched")
	}
}

func TestPushReturnsOutOfMemoryWhenTableFull(t *testing.T) {
	m := New()

	for i := 0; i < numSlots; i++ {
		if _, err := m.Push(uint16(1024 + i)); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}

	// All slots are taken; the next Push must fail.
	_, err := m.Push(9999)
	if !driverr.Is(err, driverr.KindOutOfMemory) {
		t.Errorf("got %v, want out-of-memory", err)
	}
}

func TestTakeConfirmFreesSlotForReuse(t *testing.T) {
	m := New()

	tok, _ := m.Push(1024)
	m.OnConfirm(1024, []byte{0x01})

	if _, err := m.TakeConfirm(tok, make([]byte, 4)); err != nil {
		t.Fatalf("TakeConfirm: %v", err)
	}

	// After TakeConfirm, the slot is free and Push can reuse it.
	if _, err := m.Push(1024); err != nil {
		t.Fatalf("Push after TakeConfirm: %v", err)
	}
}

func TestWaitDoneUntilSucceedsWhenConditionBecomesTrue(t *testing.T) {
	m := New()

	tok, _ := m.Push(1024)

	go func() {
		time.Sleep(5 * time.Millisecond)
		m.OnConfirm(1024, []byte{0x01})
	}()

	err := m.WaitDoneUntil(time.Second, func() bool { return m.IsDone(tok) }, nil, nil, 0)
	if err != nil {
		t.Fatalf("WaitDoneUntil: %v", err)
	}
}

func TestWaitDoneUntilTimesOut(t *testing.T) {
	m := New()

	err := m.WaitDoneUntil(10*time.Millisecond, func() bool { return false }, nil, nil, 0)
	if !driverr.Is(err, driverr.KindTimeout) {
		t.Errorf("got %v, want timeout", err)
	}
}

func TestWaitDoneUntilCallsPollEachIteration(t *testing.T) {
	m := New()

	polls := 0
	err := m.WaitDoneUntil(5*time.Millisecond, func() bool { return polls >= 3 }, func() { polls++ }, nil, 0)
	if err != nil {
		t.Fatalf("WaitDoneUntil: %v", err)
	}

	if polls < 3 {
		t.Errorf("poll called %d times, want at least 3", polls)
	}
}
