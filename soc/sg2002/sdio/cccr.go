// Package sdio implements the L1 SdioFunction layer: CCCR/FBR
// management, per-function enable and bus-width negotiation, CIS
// parsing, and the byte/FIFO accessors the upper layers use to talk to
// a specific SDIO function, grounded on the CMD52/CMD53 primitives of sdhci
// and styled on the register-group-then-accessor-methods layout the example
// pack's periph drivers use for I2C/SPI peripherals.
package sdio

import (
	"time"

	"github.com/sg2002/aic8800/driverr"
)

// CCCR (function 0) register offsets.
const (
	cccrIOEnable    = 0x02
	cccrIOReady     = 0x03
	cccrIntEnable   = 0x04
	cccrIntPending  = 0x05
	cccrBusIface    = 0x07
	cccrCISPtr0     = 0x09
	cccrCISPtr1     = 0x0A
	cccrCISPtr2     = 0x0B
)

// FBR offsets, relative to a function's 0x100-aligned base.
const (
	fbrCISPtr0    = 0x09
	fbrCISPtr1    = 0x0A
	fbrCISPtr2    = 0x0B
	fbrBlockSize0 = 0x10
	fbrBlockSize1 = 0x11
)

// Bus interface control (CCCR 0x07) width codes.
const (
	busIfaceWidth1 = 0x00
	busIfaceWidth4 = 0x02
)

// hostController is the subset of *sdhci.Controller the sdio package
// needs; declared here so tests can supply a fake.
type hostController interface {
	CMD52Read(fn uint8, addr uint32) (uint8, error)
	CMD52Write(fn uint8, addr uint32, data uint8) error
	CMD53ReadBytes(fn uint8, addr uint32, buf []byte) error
	CMD53WriteBytes(fn uint8, addr uint32, buf []byte) error
	SetBusWidth4(enable bool)
}

// cccrReadWait is how long Enable polls IO_READY.
const cccrReadWait = 100 * time.Millisecond

// fbrBase returns the FBR base address for function n.
func fbrBase(n uint8) uint32 {
	return uint32(n) * 0x100
}

// Function represents one enabled SDIO function.
type Function struct {
	host  hostController
	n     uint8
	width4 bool
}

// New returns a Function bound to function number n on host.
func New(host hostController, n uint8) *Function {
	return &Function{host: host, n: n}
}

// Enable enables the function via CCCR IO_ENABLE and polls IO_READY.
func (f *Function) Enable() error {
	cur, err := f.host.CMD52Read(0, cccrIOEnable)
	if err != nil {
		return err
	}

	cur |= 1 << f.n
	if err := f.host.CMD52Write(0, cccrIOEnable, cur); err != nil {
		return err
	}

	deadline := time.Now().Add(cccrReadWait)
	for {
		ready, err := f.host.CMD52Read(0, cccrIOReady)
		if err != nil {
			return err
		}

		// Some AIC parts use bit 4 as an alternate ready signal.
		if ready&(1<<f.n) != 0 || ready&(1<<4) != 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return driverr.New("sdio-enable", driverr.KindTimeout)
		}

		time.Sleep(time.Millisecond)
	}
}

// Disable clears the function's CCCR IO_ENABLE bit.
func (f *Function) Disable() error {
	cur, err := f.host.CMD52Read(0, cccrIOEnable)
	if err != nil {
		return err
	}

	return f.host.CMD52Write(0, cccrIOEnable, cur&^(1<<f.n))
}

// SetBlockSize writes the function's FBR block size.
func (f *Function) SetBlockSize(size uint16) error {
	base := fbrBase(f.n)

	if err := f.host.CMD52Write(0, base+fbrBlockSize0, uint8(size)); err != nil {
		return err
	}

	return f.host.CMD52Write(0, base+fbrBlockSize1, uint8(size>>8))
}

// EnableBusWidth4 switches the bus to 4-bit width via CCCR IF, then
// switches the host controller's HOST_CTRL1 to match so both ends agree
// on the new width before the next CMD53. Callers are responsible for
// the AIC8801-on-this-platform exception (see chip.KeepsSingleBitBus).
func (f *Function) EnableBusWidth4() error {
	if err := f.host.CMD52Write(0, cccrBusIface, busIfaceWidth4); err != nil {
		return err
	}

	f.host.SetBusWidth4(true)
	f.width4 = true
	return nil
}

// BusWidth4 reports whether 4-bit mode was negotiated.
func (f *Function) BusWidth4() bool {
	return f.width4
}

// EnableCardInt re-arms CARD_INT after the IRQ handler has masked it.
func (f *Function) EnableCardInt() error {
	cur, err := f.host.CMD52Read(0, cccrIntPending)
	if err != nil {
		return err
	}
	_ = cur

	en, err := f.host.CMD52Read(0, cccrIntEnable)
	if err != nil {
		return err
	}

	return f.host.CMD52Write(0, cccrIntEnable, en|1<<f.n|1)
}
