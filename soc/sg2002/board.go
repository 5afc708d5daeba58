// Package sg2002 collects the board-level knobs a board integrator is
// expected to override, mirroring board/usbarmory's per-board wiring: the
// SoC packages underneath (sdhci, sdio, gpio) are fixed by silicon, but
// which GPIO bank/pin drives WiFi power and how long the bring-up
// sequence waits are board decisions.
package sg2002

import (
	"time"

	"github.com/sg2002/aic8800/soc/sg2002/gpio"
	"github.com/sg2002/aic8800/soc/sg2002/sdhci"
)

// Board exposes the WiFi power-enable GPIO location and the bring-up
// timing a board may need to override, defaulting to the LicheeRV Nano
// W reference layout.
type Board struct {
	// GPIOController is the bank index the power-enable pin lives on.
	GPIOController int
	// GPIOPin is the pin number within GPIOController.
	GPIOPin int

	// PowerLowHold and PowerHighHold are how long the power-enable pin
	// is held low, then high, during the power-on sequence.
	PowerLowHold  time.Duration
	PowerHighHold time.Duration
	// PowerStableWait is how long to wait after the pin goes high
	// before the card is expected to respond.
	PowerStableWait time.Duration
	// PostInitWait is how long to wait after SDIO/firmware init
	// completes before the first IPC exchange.
	PostInitWait time.Duration
}

// Default returns the LicheeRV Nano W reference board configuration:
// GPIO controller 0, pin 26.
func Default() Board {
	return Board{
		GPIOController: sdhci.WifiPowerGPIOController,
		GPIOPin:        sdhci.WifiPowerGPIOPin,
		PowerLowHold:   50 * time.Millisecond,
		PowerHighHold:  50 * time.Millisecond,
		PowerStableWait: 1000 * time.Millisecond,
		PostInitWait:    500 * time.Millisecond,
	}
}

// PowerPin resolves the board's WiFi power-enable GPIO to a driveable
// pin handle.
func (b Board) PowerPin() (*gpio.Pin, error) {
	ctrl, err := gpio.New(b.GPIOController)
	if err != nil {
		return nil, err
	}

	return ctrl.Pin(b.GPIOPin)
}

// SetPinmuxGPIOMode switches the WiFi power pin's pad from its reset
// function to plain GPIO, using writeReg so callers can supply the real
// regio.Write or a fake in tests.
func SetPinmuxGPIOMode(writeReg func(addr uint32, val uint32)) {
	writeReg(sdhci.PinmuxWifiPwr, sdhci.PinmuxGPIOFunction)
}

// SetPinmuxSDIOMode restores the SD1 data/CMD/CLK pads to their SDIO
// function.
func SetPinmuxSDIOMode(writeReg func(addr uint32, val uint32)) {
	for _, addr := range []uint32{
		sdhci.PinmuxSDData0, sdhci.PinmuxSDData1, sdhci.PinmuxSDData2,
		sdhci.PinmuxSDData3, sdhci.PinmuxSDCmd, sdhci.PinmuxSDClk,
	} {
		writeReg(addr, sdhci.PinmuxSDIOFunction)
	}
}
