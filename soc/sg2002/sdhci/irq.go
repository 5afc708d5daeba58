package sdhci

import (
	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/internal/regio"
)

// maxIRQIterations bounds the per-pulse INT_STATUS drain loop.
const maxIRQIterations = 16

// cccrCardIntEnBit is CCCR 0x04 bit 0, the card's master interrupt
// enable. HandleIRQ does not write it; it masks CARD_INT in the host's own
// enable registers instead.
const cccrCardIntEnBit = 1 << 0

// HandleIRQ drains pending interrupts and dispatches command, DMA and
// card-interrupt completions. It is meant to be called by whatever platform
// interrupt dispatcher owns this controller's IRQ line; tamago's soc drivers
// call the equivalent handler directly from their trap vector.
func (hw *Controller) HandleIRQ() {
	for i := 0; i < maxIRQIterations; i++ {
		status := regio.Read(hw.base + RegIntStatus)
		if status == 0 {
			return
		}

		hw.dma.mu.Lock()
		dmaPending := hw.dma.active
		hw.dma.mu.Unlock()

		toClear := status & (CmdMask | IntBusPower)
		if !dmaPending {
			toClear |= status & DataMask
		}

		hw.clearInterrupts(toClear)

		hw.dispatchCommand(status)
		hw.dispatchData(status, dmaPending)
		hw.dispatchCardInt(status)
	}
}

// dispatchCommand implements the "command completion" half of 's IRQ
// handler.
func (hw *Controller) dispatchCommand(status uint32) {
	var err error
	var done bool

	switch {
	case status&IntTimeout != 0:
		err, done = driverr.New("irq-cmd", driverr.KindTimeout), true
	case status&IntCRC != 0:
		err, done = driverr.New("irq-cmd", driverr.KindBadCRC), true
	case status&IntEndBit != 0:
		err, done = driverr.New("irq-cmd", driverr.KindBadMessage), true
	case status&IntIndex != 0, status&IntAutoCmdErr != 0:
		err, done = driverr.New("irq-cmd", driverr.KindIO), true
	case status&IntResponse != 0:
		done = true
	}

	if done {
		hw.cmdDone.complete(err)
	}
}

// dispatchData implements the "data completion" half of 's IRQ handler, only
// while a DMA transfer is pending.
func (hw *Controller) dispatchData(status uint32, dmaPending bool) {
	if !dmaPending {
		return
	}

	switch {
	case status&IntDataEnd != 0:
		hw.dmaDone.complete(nil)
	case status&IntDataTimeout != 0:
		hw.dmaDone.complete(driverr.New("irq-dma", driverr.KindTimeout))
	case status&IntDataCRC != 0:
		hw.dmaDone.complete(driverr.New("irq-dma", driverr.KindBadCRC))
	case status&IntDataEndBit != 0:
		hw.dmaDone.complete(driverr.New("irq-dma", driverr.KindBadMessage))
	case status&IntADMAError != 0:
		hw.dmaDone.complete(driverr.New("irq-dma", driverr.KindIO))
	case status&IntDMAEnd != 0:
		hw.advanceSDMA()
	}
}

// advanceSDMA rewrites SDMA_ADDRESS to the next 512 KiB boundary without
// waking DMA_DONE.
func (hw *Controller) advanceSDMA() {
	hw.dma.mu.Lock()
	defer hw.dma.mu.Unlock()

	if !hw.dma.active {
		return
	}

	next := nextSDMABoundary(hw.dma.physBase)
	regio.Write(hw.base+RegSDMAAddress, next)
	hw.dma.physBase = next
}

// dispatchCardInt implements the CARD_INT half of 's IRQ handler: mask the
// interrupt and defer re-enable to the posted work item.
func (hw *Controller) dispatchCardInt(status uint32) {
	if status&IntCardInt == 0 {
		return
	}

	regio.ClearN(hw.base+RegIntStatusEn, 0, IntCardInt)
	regio.ClearN(hw.base+RegIntSignalEn, 0, IntCardInt)

	hw.mu.Lock()
	cb := hw.onSDIOIRQ
	hw.mu.Unlock()

	if cb != nil {
		cb()
	}
}
