package sdhci

import (
	"time"

	"github.com/usbarmory/tamago/bits"
	"github.com/usbarmory/tamago/dma"

	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/internal/regio"
)

// sdmaAlign is the alignment required of SDMA_ADDRESS.
const sdmaAlign = 4096

// sdmaBoundary is the distance the controller will transfer before the
// IRQ handler must rewrite SDMA_ADDRESS to the next 512 KiB-aligned
// physical address.
const sdmaBoundary = 512 * 1024

// maxBlockCount is the largest block_count CMD53 block mode accepts.
const maxBlockCount = 511

// CMD53ReadBlocks performs a block-mode CMD53 read of blockCount 512-byte
// blocks via SDMA.
func (hw *Controller) CMD53ReadBlocks(fn uint8, addr uint32, buf []byte, blockCount int) error {
	return hw.cmd53Blocks(fn, addr, buf, blockCount, false)
}

// CMD53WriteBlocks performs a block-mode CMD53 write of blockCount
// 512-byte blocks via SDMA.
func (hw *Controller) CMD53WriteBlocks(fn uint8, addr uint32, buf []byte, blockCount int) error {
	return hw.cmd53Blocks(fn, addr, buf, blockCount, true)
}

func (hw *Controller) cmd53Blocks(fn uint8, addr uint32, buf []byte, blockCount int, write bool) error {
	if blockCount < 1 || blockCount > maxBlockCount {
		return driverr.New("cmd53-block", driverr.KindInvalidArgument)
	}

	total := blockCount * 512
	if len(buf) < total {
		return driverr.New("cmd53-block", driverr.KindInvalidArgument)
	}

	phys, _ := dma.Reserve(total, sdmaAlign)
	defer dma.Release(phys)

	if write {
		dma.Write(phys, 0, buf[:total])
	}

	hw.mu.Lock()

	hw.dma.mu.Lock()
	hw.dma.active = true
	hw.dma.physBase = phys
	hw.dma.total = uint32(total)
	hw.dma.bytesXfered = 0
	hw.dma.mu.Unlock()

	hw.cmdDone.arm()
	hw.dmaDone.arm()

	regio.Write(hw.base+RegSDMAAddress, phys)

	hctl := regio.Read(hw.base + RegHostCtrl1)
	bits.SetN(&hctl, HostCtrl1DMASelShift, HostCtrl1DMASelMask, HostCtrl1DMASelSDMA)
	regio.Write(hw.base+RegHostCtrl1, hctl)
	hw.cachedHostCtrl1 = hctl

	regio.Write(hw.base+RegBlkSizeAndCnt, uint32(blockCount)<<16|makeBlkSz(7, 512))

	var arg uint32
	if write {
		arg = 1 << SDIOCmdArgWriteBit
	}
	arg |= (uint32(fn) & SDIOCmdArgFnMask) << SDIOCmdArgFnShift
	arg |= 1 << SDIOCmd53BlockModeBit
	arg |= (addr & SDIOCmdArgAddrMask) << SDIOCmdArgAddrShift
	arg |= uint32(blockCount) & SDIOCmd53CountMask
	regio.Write(hw.base+RegArgument, arg)

	regio.Write8(hw.base+RegTimeoutControl, 0x0E)

	tmWord := uint16(TransferModeDMAEnable | TransferModeBlockCountEnable | TransferModeMultiBlock)
	if !write {
		tmWord |= TransferModeDataDirRead
	}
	regio.Write16(hw.base+RegTransferMode, tmWord)

	word := uint16(53)<<8 | resp48 | cmdIdxCheckEnable | cmdCRCCheckEnable | cmdDataPresent
	regio.Write16(hw.base+RegCommand, word)

	err := hw.cmdDone.wait("cmd53-block-cmd", CommandTimeout)
	if err != nil {
		hw.abortBlockMode()
		hw.mu.Unlock()
		return err
	}

	err = hw.dmaDone.wait("cmd53-block-data", CommandTimeout)

	hw.dma.mu.Lock()
	hw.dma.active = false
	hw.dma.mu.Unlock()

	if err != nil {
		hw.abortBlockMode()
		hw.mu.Unlock()
		return err
	}

	hw.clearInterrupts(CmdMask | DataMask)
	hw.mu.Unlock()

	if !write {
		dma.Read(phys, 0, buf[:total])
	}

	time.Sleep(InhibitPoll)

	return hw.waitNotInhibit(true)
}

// makeBlkSz encodes the SDMA boundary-size field (bits 12:14) alongside
// the block size itself.
func makeBlkSz(boundary uint32, size uint32) uint32 {
	return boundary<<12 | size
}

// abortBlockMode implements the block-mode CMD53 error path.
func (hw *Controller) abortBlockMode() {
	hw.clearInterrupts(CmdMask | DataMask)
	hw.resetLine(true)

	hw.dma.mu.Lock()
	hw.dma.active = false
	hw.dma.mu.Unlock()
}

// nextSDMABoundary computes the next 512 KiB-aligned physical address
// past base, for the IRQ handler's DMA_END boundary rewrite.
func nextSDMABoundary(base uint32) uint32 {
	return (base/sdmaBoundary + 1) * sdmaBoundary
}
