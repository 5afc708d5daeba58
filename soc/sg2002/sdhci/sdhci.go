package sdhci

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/usbarmory/tamago/bits"

	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/internal/regio"
	"github.com/sg2002/aic8800/waitqueue"
)

// completion holds the single outstanding result for one of the two
// interrupt-driven wait points (command completion, DMA completion): a
// condition variable guarding a single result and a boolean "transfer
// pending" flag.
type completion struct {
	mu      sync.Mutex
	pending bool
	result  error
	queue   *waitqueue.Queue
}

func newCompletion() *completion {
	return &completion{queue: waitqueue.New()}
}

func (c *completion) arm() {
	c.mu.Lock()
	c.pending = true
	c.result = nil
	c.mu.Unlock()
}

// complete stores the result and wakes anyone waiting. It must be called
// after the interrupt handler has already written back the
// corresponding INT_STATUS bits.
func (c *completion) complete(err error) {
	c.mu.Lock()
	c.pending = false
	c.result = err
	c.mu.Unlock()
	c.queue.Notify()
}

// wait blocks for up to timeout for a completion and returns its result,
// or a timeout error.
func (c *completion) wait(op string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		c.mu.Lock()
		pending := c.pending
		result := c.result
		c.mu.Unlock()

		if !pending {
			return result
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return driverr.New(op, driverr.KindTimeout)
		}

		if remaining > time.Millisecond {
			remaining = time.Millisecond
		}

		c.queue.Wait(remaining)

		if time.Now().After(deadline) {
			c.mu.Lock()
			stillPending := c.pending
			c.mu.Unlock()
			if stillPending {
				return driverr.New(op, driverr.KindTimeout)
			}
		}
	}
}

// dmaState is published by a block-mode CMD53 before COMMAND is written,
// and consulted by the IRQ handler on each DMA_END to rewrite
// SDMA_ADDRESS at the 512 KiB boundary.
type dmaState struct {
	mu           sync.Mutex
	active       bool
	physBase     uint32
	total        uint32
	bytesXfered  uint32
}

// Controller drives one SG2002 SD1 SDHCI instance.
type Controller struct {
	mu sync.Mutex

	base uint32

	// cached copies avoid read-modify-write races on registers this
	// driver itself also writes from the IRQ path.
	cachedHostCtrl1 uint32
	cachedClkCtl    uint32

	cmdDone *completion
	dmaDone *completion

	dma dmaState

	sdioIRQEnabled bool
	onSDIOIRQ      func()
}

// New returns a Controller bound to the SG2002 SD1 instance.
func New() *Controller {
	return &Controller{
		base:    SD1Base,
		cmdDone: newCompletion(),
		dmaDone: newCompletion(),
	}
}

// OnSDIOIRQ registers the callback HandleIRQ invokes directly when the
// card raises CARD_INT, after masking CARD_INT. Replacement is atomic
// and the callback runs on whatever goroutine calls HandleIRQ, so
// implementations must not block in it.
func (hw *Controller) OnSDIOIRQ(fn func()) {
	hw.mu.Lock()
	hw.onSDIOIRQ = fn
	hw.mu.Unlock()
}

// SetBusWidth4 sets or clears HOST_CTRL1's 4-bit data width bit, keeping
// the host side in step with the card's own CCCR bus-width switch.
func (hw *Controller) SetBusWidth4(enable bool) {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	hctl := hw.cachedHostCtrl1
	if enable {
		bits.Set(&hctl, HostCtrl1DataWidth4)
	} else {
		bits.Clear(&hctl, HostCtrl1DataWidth4)
	}
	regio.Write(hw.base+RegHostCtrl1, hctl)
	hw.cachedHostCtrl1 = hctl
}

// Init brings the controller out of reset and up to the 400 kHz
// identification clock. Clock/reset/pinmux gating external to the SDHCI
// block itself (reset release, clock enable, pinmux) is expected to have
// already run; see power.hostInit and power.runPowerSequence.
func (hw *Controller) Init() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	log.Printf("sdhci: resetting SD1 controller")

	regio.Set(hw.base+RegClkCtlSwrst, SwrstAll)
	if !regio.WaitFor(100*time.Millisecond, hw.base+RegClkCtlSwrst, SwrstAll, 1, 0) {
		return driverr.New("init", driverr.KindTimeout)
	}

	regio.Write8(hw.base+RegPowerControl, PowerControlOn|PowerControl3_3V)
	regio.Write8(hw.base+RegBlockGap, 0)
	regio.Write8(hw.base+RegWakeUp, 0)
	// BROKEN_TIMEOUT_VAL quirk: this platform's timeout counter does not
	// reliably assert, so the maximum value is programmed and data-timeout
	// errors are not relied upon.
	regio.Write8(hw.base+RegTimeoutControl, 0x0E)

	hctl := regio.Read(hw.base + RegHostCtrl1)
	bits.Set(&hctl, HostCtrl1CardDetectTestLevel)
	bits.Set(&hctl, HostCtrl1CardDetectSignalSel)
	regio.Write(hw.base+RegHostCtrl1, hctl)
	hw.cachedHostCtrl1 = hctl

	hw.tunePHY()

	regio.Write(hw.base+RegIntStatusEn, DefaultIntMask)
	regio.Write(hw.base+RegIntSignalEn, DefaultIntMask)

	if err := hw.setClock(IdentificationClockHz); err != nil {
		return err
	}

	return nil
}

// tunePHY applies the vendor-specific PHY tuning sequence.
func (hw *Controller) tunePHY() {
	vendorBase := regio.Read16(hw.base+RegVendorAreaPtr) & 0xFFF

	mshc := regio.Read(hw.base + uint32(vendorBase) + MSHCCtrlOffset)
	bits.Set(&mshc, 0)
	bits.Set(&mshc, 1)
	bits.Set(&mshc, 16)
	regio.Write(hw.base+uint32(vendorBase)+MSHCCtrlOffset, mshc)

	regio.Write(hw.base+uint32(vendorBase)+PHYTxRxDlyOffset, 0x01000100)

	cfg := regio.Read(hw.base + uint32(vendorBase) + PHYConfigOffset)
	bits.Set(&cfg, 0)
	regio.Write(hw.base+uint32(vendorBase)+PHYConfigOffset, cfg)
}

// setClock programs FREQ_SEL via the divisor formula in step 7.
func (hw *Controller) setClock(targetHz int) error {
	regio.Clear(hw.base+RegClkCtlSwrst, SDClkEn)

	divisor := int(math.Ceil(float64(InternalClockHz) / (2 * float64(targetHz))))
	if divisor < 1 {
		divisor = 1
	}
	if divisor > 255 {
		divisor = 255
	}

	clk := regio.Read(hw.base + RegClkCtlSwrst)
	bits.SetN(&clk, FreqSelShift, FreqSelMask, uint32(divisor))
	regio.Write(hw.base+RegClkCtlSwrst, clk)
	hw.cachedClkCtl = clk

	regio.Set(hw.base+RegClkCtlSwrst, IntClkEn)

	if !regio.WaitFor(10*time.Millisecond, hw.base+RegClkCtlSwrst, IntClkStable, 1, 1) {
		log.Printf("sdhci: internal clock did not stabilize, enabling SD_CLK anyway")
	}

	regio.Set(hw.base+RegClkCtlSwrst, SDClkEn)

	return nil
}

// waitNotInhibit waits for CMD_INHIBIT (and, if data, CMD_INHIBIT_DAT) to
// clear, the mandatory pre-flight check before CMD52/CMD53 and the
// post-CMD7 wait.
func (hw *Controller) waitNotInhibit(data bool) error {
	if !regio.WaitFor(InhibitTimeout, hw.base+RegPresentState, PresentCmdInhibit, 1, 0) {
		return driverr.New("wait-not-inhibit", driverr.KindTimeout)
	}

	if data {
		if !regio.WaitFor(InhibitTimeout, hw.base+RegPresentState, PresentDatInhibit, 1, 0) {
			return driverr.New("wait-not-inhibit", driverr.KindTimeout)
		}
	}

	return nil
}

// resetLine resets the CMD or DAT line.
func (hw *Controller) resetLine(dat bool) {
	bit := SwrstCmd
	if dat {
		bit = SwrstDat
	}

	regio.Set(hw.base+RegClkCtlSwrst, bit)
	regio.WaitFor(10*time.Millisecond, hw.base+RegClkCtlSwrst, bit, 1, 0)
}

// clearInterrupts writes back the given mask to INT_STATUS, the
// clear-by-write-1 SDHCI convention used throughout this driver.
func (hw *Controller) clearInterrupts(mask uint32) {
	regio.Write(hw.base+RegIntStatus, mask)
}
