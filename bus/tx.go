package bus

import (
	"time"

	"github.com/sg2002/aic8800/chip"
	"github.com/sg2002/aic8800/driverr"
)

// txWorkerLoop is the TX worker thread: it waits indefinitely on BUSTX,
// sends the single pending frame, and signals TX_DONE with the result.
func (s *Stack) txWorkerLoop() {
	for s.isRunning() {
		if !s.txQueue.Wait(time.Second) {
			continue
		}
		if !s.isRunning() {
			return
		}

		s.pending.mu.Lock()
		buf := append([]byte(nil), s.pending.buf[:s.pending.len]...)
		s.pending.mu.Unlock()

		err := s.sendFrame(buf)

		s.txResultMu.Lock()
		s.txResult = err
		s.txResultMu.Unlock()

		s.txDone.Notify()
	}
}

// sendFrame writes buf to the firmware's message port, applying the
// AIC8801 flow-control gate first.
func (s *Stack) sendFrame(buf []byte) error {
	if s.product == chip.AIC8801 {
		if err := s.waitFlowControl(len(buf)); err != nil {
			return err
		}
		return s.f1.WriteFIFO(f1WrFifo, buf)
	}

	return s.f2.WriteFIFO(f2MsgPort, buf)
}

// Flow-control retry shape: 30 spins of 200 μs, 10 of 1 ms, 10 of 10 ms, per
// inner attempt; up to 10 outer attempts.
const (
	flowCtrlInnerAttempts = 50
	flowCtrlOuterAttempts = 10
	flowCtrlFastSpins     = 30
	flowCtrlMediumSpins   = 40
)

func flowCtrlBackoff(i int) time.Duration {
	switch {
	case i < flowCtrlFastSpins:
		return 200 * time.Microsecond
	case i < flowCtrlMediumSpins:
		return time.Millisecond
	default:
		return 10 * time.Millisecond
	}
}

// waitFlowControl blocks until F1 FLOW_CTRL reports enough buffer slots
// for payloadLen, or returns a timeout error after 10 outer retries.
func (s *Stack) waitFlowControl(payloadLen int) error {
	var bufferCnt int

	for retry := 0; retry < flowCtrlOuterAttempts; retry++ {
		var lastFC uint8

		for i := 0; i < flowCtrlInnerAttempts; i++ {
			fc, err := s.f1.ReadByte(f1FlowCtrl)
			if err != nil {
				return err
			}

			lastFC = fc & flowCtrlMask
			if lastFC != 0 {
				break
			}

			time.Sleep(flowCtrlBackoff(i))
		}

		bufferCnt = int(lastFC)
		if bufferCnt > 0 && payloadLen < bufferCnt*flowCtrlSlot {
			return nil
		}

		if retry == flowCtrlOuterAttempts-1 {
			return driverr.New("bus-flow-control", driverr.KindTimeout)
		}
	}

	return driverr.New("bus-flow-control", driverr.KindTimeout)
}
