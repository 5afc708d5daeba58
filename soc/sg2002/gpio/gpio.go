// Package gpio implements the SG2002 GPIO controller: a bank of 32
// data/direction-mapped pins exposed as individual Pin handles, modeled
// on the tamago imx6 GPIO driver's controller+Pin split
// (soc/nxp/gpio), adapted from this DesignWare-style bank's
// SWPORTA_DR/SWPORTA_DDR register pair instead of imx6's GDIR/DR/PSR.
package gpio

import (
	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/internal/regio"
)

// Bank base addresses (grounded on the reference board support package's
// GPIO0..GPIO3 constants).
const (
	GPIO0Base = 0x03020000
	GPIO1Base = 0x03021000
	GPIO2Base = 0x03022000
	GPIO3Base = 0x03023000
)

// Register offsets within a bank.
const (
	regData = 0x00 // SWPORTA_DR
	regDir  = 0x04 // SWPORTA_DDR, 0 = input, 1 = output
)

const maxPin = 32

// Controller drives one 32-pin GPIO bank.
type Controller struct {
	base uint32
}

// New returns a Controller for bank n (0-3).
func New(n int) (*Controller, error) {
	var base uint32

	switch n {
	case 0:
		base = GPIO0Base
	case 1:
		base = GPIO1Base
	case 2:
		base = GPIO2Base
	case 3:
		base = GPIO3Base
	default:
		return nil, driverr.New("gpio-new", driverr.KindInvalidArgument)
	}

	return &Controller{base: base}, nil
}

// Pin returns a handle for pin num (0-31) on this bank.
func (c *Controller) Pin(num int) (*Pin, error) {
	if num < 0 || num >= maxPin {
		return nil, driverr.New("gpio-pin", driverr.KindInvalidArgument)
	}

	return &Pin{base: c.base, num: num}, nil
}

// Pin is a single GPIO line.
type Pin struct {
	base uint32
	num  int
}

// Out configures the pin as an output.
func (p *Pin) Out() {
	regio.Set(p.base+regDir, p.num)
}

// In configures the pin as an input.
func (p *Pin) In() {
	regio.Clear(p.base+regDir, p.num)
}

// High drives the pin high.
func (p *Pin) High() {
	regio.Set(p.base+regData, p.num)
}

// Low drives the pin low.
func (p *Pin) Low() {
	regio.Clear(p.base+regData, p.num)
}

// Value reports the pin's current level.
func (p *Pin) Value() bool {
	return regio.Get(p.base+regData, p.num, 1) != 0
}
