package bus

import (
	"time"

	"github.com/sg2002/aic8800/lmac"
)

// rxPollTimeout is how long the RX worker blocks on the SDIO-IRQ queue
// before waking anyway to poll.
const rxPollTimeout = 20 * time.Millisecond

// rxWorkerLoop is the RX worker thread.
func (s *Stack) rxWorkerLoop() {
	for s.isRunning() {
		s.rxQueue.Wait(rxPollTimeout)
		if !s.isRunning() {
			return
		}

		s.pollOnce()
	}
}

// pollOnce performs one drain-and-parse cycle. It is exported to the
// package via Stack.PollRX so CommandManager.WaitDoneUntil can drive the
// RX path directly when no hardware IRQ is available.
func (s *Stack) pollOnce() {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()

	n, err := s.drain()
	if err != nil || n == 0 {
		return
	}

	lmac.ParseFrames(s.rxBuf[:n], s.dispatchConfig, s.dispatchData)
}

// PollRX drains and parses one cycle of the receive FIFO, for use as the
// poll callback passed to cmdmgr.Manager.WaitDoneUntil.
func (s *Stack) PollRX() {
	s.pollOnce()
}

// drain reads the card's pending frame bytes into rxBuf and returns how
// many bytes were read.
func (s *Stack) drain() (int, error) {
	blockCnt, err := s.f1.ReadByte(f1BlockCnt)
	if err != nil {
		return 0, err
	}
	if blockCnt == 0 {
		return 0, nil
	}

	var dataLen int
	if blockCnt >= bytemodeThresh {
		byteLen, err := s.f1.ReadByte(f1BytemodeLen)
		if err != nil {
			return 0, err
		}
		dataLen = int(byteLen) * 4
	} else {
		dataLen = int(blockCnt) * blockSize
	}

	if dataLen > len(s.rxBuf) {
		dataLen = len(s.rxBuf)
	}

	if err := s.f1.ReadFIFO(f1RdFifo, s.rxBuf[:dataLen]); err != nil {
		return 0, err
	}

	return dataLen, nil
}

func (s *Stack) dispatchConfig(f lmac.ConfigFrame) {
	s.cmdMgr.OnConfirm(f.MsgID, f.Param)

	s.runningMu.Lock()
	cb := s.configIndication
	s.runningMu.Unlock()

	if cb != nil {
		cb(f)
	}
}

func (s *Stack) dispatchData(f lmac.DataFrame) {
	s.runningMu.Lock()
	cb := s.dataIndication
	s.runningMu.Unlock()

	if cb != nil {
		cb(f)
	}
}
