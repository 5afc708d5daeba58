// Package cmdmgr implements the L4 CommandManager: a fixed table of
// pending request/confirm slots that higher layers use to issue
// synchronous LMAC commands, grounded on the slot-table pattern
// described for the firmware command interface and styled after the
// mutex-guarded fixed-size table idiom used throughout the example
// pack's bus/device managers.
package cmdmgr

import (
	"log"
	"sync"
	"time"

	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/waitqueue"
)

// numSlots is the size of the pending-request table.
const numSlots = 8

// maxParamLen bounds the confirm payload copied into a slot.
const maxParamLen = 256

// Token identifies a slot reserved by Push.
type Token int

// Timeouts for the round trips this package manages.
const (
	CommandTimeout        = 6000 * time.Millisecond
	UploadBlockTimeout     = 500 * time.Millisecond
	ChipRevisionTimeout   = 2000 * time.Millisecond
)

type slot struct {
	used     bool
	cfmID    uint16
	done     bool
	param    [maxParamLen]byte
	paramLen int
}

// Manager is the 8-slot pending-command table.
type Manager struct {
	mu    sync.Mutex
	slots [numSlots]slot

	cmdDone *waitqueue.Queue

	running bool
}

// New returns a ready to use Manager.
func New() *Manager {
	return &Manager{cmdDone: waitqueue.New()}
}

// Push reserves the first free slot, registering cfmID as the message
// ID its matching confirmation will carry, and returns a token, or an
// out-of-memory error if all slots are taken. Callers push the CFM's own
// message ID (e.g. DBG_MEM_READ_CFM), not the REQ's — the two differ by
// convention but the manager only ever matches on the confirm's ID.
func (m *Manager) Push(cfmID uint16) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		if !m.slots[i].used {
			m.slots[i] = slot{used: true, cfmID: cfmID}
			return Token(i), nil
		}
	}

	return -1, driverr.New("cmdmgr-push", driverr.KindOutOfMemory)
}

// OnConfirm scans the table for the first not-done slot whose cfmID
// matches messageID, copies up to maxParamLen bytes of param in, marks
// the slot done, and wakes CMD_DONE. A confirm matching no pending slot
// is silently dropped.
func (m *Manager) OnConfirm(messageID uint16, param []byte) {
	m.mu.Lock()

	matched := false
	for i := range m.slots {
		s := &m.slots[i]
		if s.used && !s.done && s.cfmID == messageID {
			n := copy(s.param[:], param)
			s.paramLen = n
			s.done = true
			matched = true
			break
		}
	}

	m.mu.Unlock()

	if matched {
		m.cmdDone.Notify()
	}
}

// IsDone reports whether token's slot has been confirmed, without
// clearing it.
func (m *Manager) IsDone(t Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.valid(t) {
		return false
	}

	return m.slots[t].done
}

// TakeConfirm removes token's slot and copies its param out, returning
// the number of bytes copied.
func (m *Manager) TakeConfirm(t Token, out []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.valid(t) || !m.slots[t].used {
		return 0, driverr.New("cmdmgr-take", driverr.KindInvalidArgument)
	}

	s := m.slots[t]
	m.slots[t] = slot{}

	n := copy(out, s.param[:s.paramLen])
	return n, nil
}

func (m *Manager) valid(t Token) bool {
	return t >= 0 && int(t) < numSlots
}

// WaitDoneUntil is the primary entry point for higher layers: it polls cond
// each millisecond, calling poll (which may drive the RX path when no
// interrupt is available) and tick (every logEveryMs, passed the elapsed
// wait) on each iteration, and waits on CMD_DONE for that 1 ms slice. It
// returns nil once cond reports true, or a timeout error once timeout
// elapses.
func (m *Manager) WaitDoneUntil(timeout time.Duration, cond func() bool, poll func(), tick func(waited time.Duration), logEveryMs time.Duration) error {
	start := time.Now()
	lastLog := start

	for {
		if cond() {
			return nil
		}

		if poll != nil {
			poll()
		}

		waited := time.Since(start)

		if tick != nil && logEveryMs > 0 && time.Since(lastLog) >= logEveryMs {
			tick(waited)
			lastLog = time.Now()
		}

		if waited >= timeout {
			return driverr.New("cmdmgr-wait", driverr.KindTimeout)
		}

		m.cmdDone.Wait(time.Millisecond)
	}
}

// DefaultTick logs a one-line progress marker, matching the style of
// the other stage markers in the bring-up sequence.
func DefaultTick(op string) func(time.Duration) {
	return func(waited time.Duration) {
		log.Printf("cmdmgr: %s still waiting after %s", op, waited.Round(time.Millisecond))
	}
}
