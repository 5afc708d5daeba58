package sdhci

import (
	"time"

	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/internal/regio"
)

// SDHCI COMMAND register response-type-select field (bits 0-1) and the
// flags that accompany each response class.
const (
	respNone = 0x00
	resp136  = 0x01
	resp48   = 0x02
	resp48Busy = 0x03

	cmdCRCCheckEnable = 1 << 3
	cmdIdxCheckEnable = 1 << 4
	cmdDataPresent    = 1 << 5
)

// sendCommand writes ARGUMENT then the TRANSFER_MODE/COMMAND composite
// word, and waits on the CMD_DONE completion the IRQ handler posts.
func (hw *Controller) sendCommand(index uint8, respType uint16, dataPresent bool, arg uint32) error {
	if err := hw.waitNotInhibit(dataPresent); err != nil {
		return err
	}

	word := uint16(index)<<8 | respType | cmdIdxCheckEnable | cmdCRCCheckEnable
	var tm uint32
	if dataPresent {
		word |= cmdDataPresent
		if arg&(1<<SDIOCmdArgWriteBit) == 0 {
			tm = TransferModeDataDirRead
		}
	}

	hw.cmdDone.arm()

	regio.Write(hw.base+RegArgument, arg)
	regio.Write(hw.base+RegTransferMode, uint32(word)<<16|tm)

	return hw.cmdDone.wait("cmd", CommandTimeout)
}

// response returns RESP31_0.
func (hw *Controller) response() uint32 {
	return regio.Read(hw.base + RegResp31_0)
}

// sdioArg52 builds a CMD52 argument.
func sdioArg52(write bool, fn uint8, addr uint32, data uint8) uint32 {
	var arg uint32
	if write {
		arg |= 1 << SDIOCmdArgWriteBit
	}
	arg |= (uint32(fn) & SDIOCmdArgFnMask) << SDIOCmdArgFnShift
	arg |= (addr & SDIOCmdArgAddrMask) << SDIOCmdArgAddrShift
	arg |= uint32(data) & SDIOCmdArgDataMask
	return arg
}

// CMD52Read issues a byte-direct read on function fn at addr.
func (hw *Controller) CMD52Read(fn uint8, addr uint32) (uint8, error) {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.sendCommand(52, resp48, false, sdioArg52(false, fn, addr, 0)); err != nil {
		hw.resetLine(false)
		hw.clearInterrupts(CmdMask)
		return 0, err
	}

	resp := hw.response()
	if resp>>16&R5ErrorMask != 0 {
		return 0, driverr.Newf("cmd52-read", driverr.KindIO, "R5 error mask 0x%02x", resp>>16&0xFF)
	}

	return uint8(resp), nil
}

// CMD52Write issues a byte-direct write on function fn at addr.
func (hw *Controller) CMD52Write(fn uint8, addr uint32, data uint8) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.sendCommand(52, resp48, false, sdioArg52(true, fn, addr, data)); err != nil {
		hw.resetLine(false)
		hw.clearInterrupts(CmdMask)
		return err
	}

	resp := hw.response()
	if resp>>16&R5ErrorMask != 0 {
		return driverr.Newf("cmd52-write", driverr.KindIO, "R5 error mask 0x%02x", resp>>16&0xFF)
	}

	return nil
}

// sdioArg53 builds a CMD53 argument, byte or block mode.
func sdioArg53(write bool, fn uint8, blockMode bool, addr uint32, count uint32) uint32 {
	var arg uint32
	if write {
		arg |= 1 << SDIOCmdArgWriteBit
	}
	arg |= (uint32(fn) & SDIOCmdArgFnMask) << SDIOCmdArgFnShift
	if blockMode {
		arg |= 1 << SDIOCmd53BlockModeBit
	}
	arg |= (addr & SDIOCmdArgAddrMask) << SDIOCmdArgAddrShift
	arg |= count & SDIOCmd53CountMask
	return arg
}

// CMD53ReadBytes performs a byte-mode CMD53 read of n bytes (1..512),
// encoding a full 512-byte transfer as count-field 0.
func (hw *Controller) CMD53ReadBytes(fn uint8, addr uint32, buf []byte) error {
	if len(buf) < 1 || len(buf) > 512 {
		return driverr.New("cmd53-read", driverr.KindInvalidArgument)
	}

	hw.mu.Lock()
	defer hw.mu.Unlock()

	countField := uint32(len(buf))
	if len(buf) == 512 {
		countField = 0
	}

	regio.Write(hw.base+RegBlkSizeAndCnt, (1<<16)|countField)

	err := hw.sendCommand(53, resp48, true, sdioArg53(false, fn, false, addr, countField))
	if err != nil {
		return hw.abortByteMode(err)
	}

	if err := hw.pioTransfer(buf, false); err != nil {
		return hw.abortByteMode(err)
	}

	return hw.finishByteMode()
}

// CMD53WriteBytes performs a byte-mode CMD53 write of n bytes (1..512).
func (hw *Controller) CMD53WriteBytes(fn uint8, addr uint32, buf []byte) error {
	if len(buf) < 1 || len(buf) > 512 {
		return driverr.New("cmd53-write", driverr.KindInvalidArgument)
	}

	hw.mu.Lock()
	defer hw.mu.Unlock()

	countField := uint32(len(buf))
	if len(buf) == 512 {
		countField = 0
	}

	regio.Write(hw.base+RegBlkSizeAndCnt, (1<<16)|countField)

	err := hw.sendCommand(53, resp48, true, sdioArg53(true, fn, false, addr, countField))
	if err != nil {
		return hw.abortByteMode(err)
	}

	if err := hw.pioTransfer(buf, true); err != nil {
		return hw.abortByteMode(err)
	}

	return hw.finishByteMode()
}

// pioTransfer drains or fills buf one 32-bit word at a time, polling the
// BUF_RRDY/BUF_WRDY ready bit before each word.
func (hw *Controller) pioTransfer(buf []byte, write bool) error {
	readyBit := PresentBufReadReady
	readyIntBit := uint32(IntDataAvail)
	if write {
		readyBit = PresentBufWriteReady
		readyIntBit = IntSpaceAvail
	}

	for off := 0; off < len(buf); off += 4 {
		if !regio.WaitFor(CommandTimeout, hw.base+RegPresentState, readyBit, 1, 1) {
			return driverr.New("pio", driverr.KindTimeout)
		}

		hw.clearInterrupts(readyIntBit)

		n := len(buf) - off
		if n > 4 {
			n = 4
		}

		if write {
			var word uint32
			for i := 0; i < n; i++ {
				word |= uint32(buf[off+i]) << (8 * i)
			}
			regio.Write(hw.base+RegBufData, word)
		} else {
			word := regio.Read(hw.base + RegBufData)
			for i := 0; i < n; i++ {
				buf[off+i] = byte(word >> (8 * i))
			}
		}
	}

	return hw.waitDataEnd()
}

// waitDataEnd polls for DATA_END, treating the documented co-assertion
// of DATA_END and DATA_TIMEOUT as success.
func (hw *Controller) waitDataEnd() error {
	deadline := time.Now().Add(CommandTimeout)

	for {
		status := regio.Read(hw.base + RegIntStatus)

		if status&IntDataEnd != 0 {
			hw.clearInterrupts(IntDataEnd | IntDataTimeout)
			return nil
		}

		if status&IntDataCRC != 0 {
			hw.clearInterrupts(status & DataMask)
			return driverr.New("pio-data-end", driverr.KindBadCRC)
		}

		if status&IntDataEndBit != 0 {
			hw.clearInterrupts(status & DataMask)
			return driverr.New("pio-data-end", driverr.KindBadMessage)
		}

		if status&IntADMAError != 0 {
			hw.clearInterrupts(status & DataMask)
			return driverr.New("pio-data-end", driverr.KindIO)
		}

		if time.Now().After(deadline) {
			return driverr.New("pio-data-end", driverr.KindTimeout)
		}

		time.Sleep(InhibitPoll)
	}
}

// abortByteMode implements the byte-mode CMD53 error path: clear interrupt
// status, reset the DAT line, and propagate the original error.
func (hw *Controller) abortByteMode(cause error) error {
	hw.clearInterrupts(CmdMask | DataMask)
	hw.resetLine(true)
	return cause
}

// finishByteMode is the mandatory post-op settle: clear status, delay
// ~1 ms, wait-not-inhibit.
func (hw *Controller) finishByteMode() error {
	hw.clearInterrupts(CmdMask | DataMask)
	time.Sleep(InhibitPoll)
	return hw.waitNotInhibit(true)
}
