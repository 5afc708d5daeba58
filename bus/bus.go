// Package bus implements the L3 BusStack: the framed IPC channel between
// host and firmware carried over SDIO function 1 (AIC8801) or function 2
// (AIC8800DC/DW/D80), built on top of a TX worker, an RX worker and a
// flow-control gate, grounded on the two-thread bus model this driver
// needs and styled after the worker-goroutine pattern used elsewhere in
// the ecosystem (e.g. imx6/usdhc's IRQ-driven completion handling).
package bus

import (
	"log"
	"sync"
	"time"

	"github.com/sg2002/aic8800/chip"
	"github.com/sg2002/aic8800/cmdmgr"
	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/lmac"
	"github.com/sg2002/aic8800/waitqueue"
)

// Function 1 register offsets.
const (
	f1BytemodeLen = 0x02
	f1WrFifo      = 0x07
	f1RdFifo      = 0x08
	f1FlowCtrl    = 0x0A
	f1BlockCnt    = 0x12
)

// f2MsgPort is function 2's fixed message port, the TX destination for
// every product other than AIC8801 in place of F1's WR_FIFO. RX always
// drains F1's RD_FIFO.
const f2MsgPort = 0x07

const (
	bytemodeThresh = 64
	blockSize      = 512
	flowCtrlMask   = 0x7F
	flowCtrlSlot   = 1536
)

// pendingTXLen is the fixed size of the single outstanding TX slot.
const pendingTXLen = 1536

// funcIO is the per-function SDIO accessor BusStack drives; satisfied by
// *sdio.Function.
type funcIO interface {
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, val uint8) error
	ReadFIFO(addr uint32, buf []byte) error
	WriteFIFO(addr uint32, buf []byte) error
}

// DataIndication receives a data frame pulled off the RX path. It runs on
// the RX worker goroutine and must not block.
type DataIndication func(lmac.DataFrame)

// ConfigIndication receives every config frame pulled off the RX path, in
// addition to (and regardless of) whatever CommandManager slot it may
// also complete.
type ConfigIndication func(lmac.ConfigFrame)

type pendingTX struct {
	mu  sync.Mutex
	buf [pendingTXLen]byte
	len int
}

// Stack is the L3 BusStack: one SDIO function pair, one TX worker, one RX
// worker, and the CommandManager they feed.
type Stack struct {
	product chip.Product
	f1      funcIO
	f2      funcIO // nil for AIC8801, which never addresses function 2

	cmdMgr *cmdmgr.Manager

	pending pendingTX
	txQueue *waitqueue.Queue
	txDone  *waitqueue.Queue
	txResult error
	txResultMu sync.Mutex

	rxQueue *waitqueue.Queue

	runningMu sync.Mutex
	running   bool

	dataIndication   DataIndication
	configIndication ConfigIndication

	rxMu  sync.Mutex
	rxBuf [8192]byte
}

// New returns a Stack bound to product's SDIO functions and cmdMgr.
// f2 may be nil when product is AIC8801.
func New(product chip.Product, f1, f2 funcIO, cmdMgr *cmdmgr.Manager) *Stack {
	return &Stack{
		product: product,
		f1:      f1,
		f2:      f2,
		cmdMgr:  cmdMgr,
		txQueue: waitqueue.New(),
		txDone:  waitqueue.New(),
		rxQueue: waitqueue.New(),
	}
}

// SetDataIndication registers the data-frame callback, replacing any
// previous registration.
func (s *Stack) SetDataIndication(cb DataIndication) {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	s.dataIndication = cb
}

// SetConfigIndication registers the config-frame callback.
func (s *Stack) SetConfigIndication(cb ConfigIndication) {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	s.configIndication = cb
}

// NotifySDIOIRQ wakes the RX worker; wired to the host controller's card
// interrupt callback.
func (s *Stack) NotifySDIOIRQ() {
	s.rxQueue.Notify()
}

// Start launches the TX and RX worker goroutines. Calling Start twice is a
// programmer error.
func (s *Stack) Start() {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		panic("bus: Stack already started")
	}
	s.running = true
	s.runningMu.Unlock()

	go s.txWorkerLoop()
	go s.rxWorkerLoop()

	log.Printf("bus: workers started")
}

// Stop posts both wait queues and clears the running flag; the worker
// goroutines observe it and exit their loops within one iteration.
func (s *Stack) Stop() {
	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	s.txQueue.Notify()
	s.rxQueue.Notify()

	log.Printf("bus: stop requested")
}

func (s *Stack) isRunning() bool {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	return s.running
}

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}

// Submit encodes msg for the wire, reserves a CommandManager slot under
// cfmID, and hands the frame to the TX worker, returning the slot token
// the caller then waits on.
func (s *Stack) Submit(msg *lmac.Msg, cfmID uint16) (cmdmgr.Token, error) {
	frame := msg.Encode(s.product == chip.AIC8801)

	length := len(frame)
	if s.product == chip.AIC8801 {
		length = roundUp(roundUp(length, 4)+4, blockSize)
		padded := make([]byte, length)
		copy(padded, frame)
		frame = padded
	}

	if length > pendingTXLen {
		return -1, driverr.New("bus-submit", driverr.KindOutOfMemory)
	}

	tok, err := s.cmdMgr.Push(cfmID)
	if err != nil {
		return -1, err
	}

	s.pending.mu.Lock()
	copy(s.pending.buf[:], frame)
	s.pending.len = length
	s.pending.mu.Unlock()

	s.txQueue.Notify()

	if !s.txDone.Wait(cmdmgr.CommandTimeout) {
		return tok, driverr.New("bus-submit", driverr.KindTimeout)
	}

	s.txResultMu.Lock()
	result := s.txResult
	s.txResultMu.Unlock()

	return tok, result
}

// Request sends msg, awaits its cfmID confirmation for up to timeout, and
// copies the confirm's param into out, returning the number of bytes
// copied.
func (s *Stack) Request(msg *lmac.Msg, cfmID uint16, out []byte, timeout time.Duration) (int, error) {
	tok, err := s.Submit(msg, cfmID)
	if err != nil {
		return 0, err
	}

	poll := s.PollRX
	tick := cmdmgr.DefaultTick("bus-request")

	if err := s.cmdMgr.WaitDoneUntil(timeout, func() bool { return s.cmdMgr.IsDone(tok) }, poll, tick, time.Second); err != nil {
		return 0, err
	}

	return s.cmdMgr.TakeConfirm(tok, out)
}
