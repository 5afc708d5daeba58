package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/sg2002/aic8800/chip"
	"github.com/sg2002/aic8800/cmdmgr"
	"github.com/sg2002/aic8800/lmac"
)

// fakeFunc is a minimal in-memory stand-in for *sdio.Function, modeling
// F1's fixed-address registers and FIFOs as byte-addressed maps.
type fakeFunc struct {
	mu   sync.Mutex
	regs map[uint32]uint8
	fifo map[uint32][]byte // drain queue per address, written by test setup
	sent [][]byte          // records every WriteFIFO call, in order
}

func newFakeFunc() *fakeFunc {
	return &fakeFunc{regs: map[uint32]uint8{}, fifo: map[uint32][]byte{}}
}

func (f *fakeFunc) ReadByte(addr uint32) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[addr], nil
}

func (f *fakeFunc) WriteByte(addr uint32, val uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[addr] = val
	return nil
}

func (f *fakeFunc) ReadFIFO(addr uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.fifo[addr]
	n := copy(buf, q)
	f.fifo[addr] = q[n:]
	return nil
}

func (f *fakeFunc) WriteFIFO(addr uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), buf...)
	f.sent = append(f.sent, cp)
	return nil
}

func TestSubmitPadsAIC8801Frame(t *testing.T) {
	f1 := newFakeFunc()
	f1.regs[f1FlowCtrl] = 0x02 // 2 slots, enough for any small frame

	s := New(chip.AIC8801, f1, nil, cmdmgr.New())
	s.Start()
	defer s.Stop()

	msg := lmac.MemReadReq(0x40500000)

	if _, err := s.Submit(msg, lmac.DbgMemReadCfm); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f1.mu.Lock()
	defer f1.mu.Unlock()
	if len(f1.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(f1.sent))
	}
	if len(f1.sent[0])%blockSize != 0 {
		t.Errorf("sent frame length %d is not block-size aligned", len(f1.sent[0]))
	}
}

func TestSendFrameTimesOutWhenFlowControlStaysZero(t *testing.T) {
	f1 := newFakeFunc() // FLOW_CTRL stays 0x00

	s := New(chip.AIC8801, f1, nil, cmdmgr.New())

	start := time.Now()
	err := s.sendFrame(make([]byte, 64))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("flow control gate took %s, want under 2s", elapsed)
	}
	if err == nil {
		t.Fatal("expected flow-control timeout")
	}
}

func TestRequestRoundTripViaPollRX(t *testing.T) {
	f1 := newFakeFunc()
	f1.regs[f1FlowCtrl] = 0x02

	s := New(chip.AIC8801, f1, nil, cmdmgr.New())
	s.Start()
	defer s.Stop()

	// Once the frame is sent, synthesize the firmware's confirm frame
	// sitting in F1's RD_FIFO, as if the card had already raised its IRQ.
	go func() {
		for {
			f1.mu.Lock()
			sent := len(f1.sent)
			f1.mu.Unlock()
			if sent > 0 {
				break
			}
			time.Sleep(time.Millisecond)
		}

		cfgParam := make([]byte, 8)
		cfgParam[4], cfgParam[5], cfgParam[6], cfgParam[7] = 0x03, 0x00, 0x00, 0x00

		frame := buildConfigFrameForTest(lmac.DbgMemReadCfm, lmac.TaskDbg, lmac.DrvTaskID, cfgParam)

		f1.mu.Lock()
		f1.regs[f1BlockCnt] = 1
		f1.fifo[f1RdFifo] = frame
		f1.mu.Unlock()

		s.NotifySDIOIRQ()
	}()

	msg := lmac.MemReadReq(0x40500000)
	out := make([]byte, 8)

	n, err := s.Request(msg, lmac.DbgMemReadCfm, out, time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if n != 8 {
		t.Fatalf("got n=%d, want 8", n)
	}

	memdata, ok := lmac.ParseMemReadCfm(out[:n])
	if !ok || memdata != 0x03 {
		t.Errorf("memdata = %d, ok=%v, want 3", memdata, ok)
	}
}

func buildConfigFrameForTest(msgID, destID, srcID uint16, param []byte) []byte {
	buf := make([]byte, blockSize) // pad to one block so BLOCK_CNT=1 drains cleanly
	buf[2] = 0x11
	buf[4], buf[5] = byte(msgID), byte(msgID>>8)
	buf[6], buf[7] = byte(destID), byte(destID>>8)
	buf[8], buf[9] = byte(srcID), byte(srcID>>8)
	buf[10], buf[11] = byte(len(param)), byte(len(param)>>8)
	copy(buf[16:], param)
	return buf
}
