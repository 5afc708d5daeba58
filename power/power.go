// Package power implements the L5 PowerAndInit layer: a process-wide
// mutex ordering the GPIO power sequence, SDIO host bring-up, chip
// identification and firmware load into one chain, and the symmetric
// teardown that stops the bus workers and clears device state, grounded
// on this driver's bring-up order and the register-gating style of
// imx6/usdhc.Init (reset release, clock enable, pinmux, then controller
// reset).
package power

import (
	"log"
	"sync"
	"time"

	"github.com/sg2002/aic8800/bus"
	"github.com/sg2002/aic8800/chip"
	"github.com/sg2002/aic8800/cmdmgr"
	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/firmware"
	"github.com/sg2002/aic8800/internal/regio"
	"github.com/sg2002/aic8800/lmac"
	"github.com/sg2002/aic8800/soc/sg2002"
	"github.com/sg2002/aic8800/soc/sg2002/sdhci"
	"github.com/sg2002/aic8800/soc/sg2002/sdio"
)

// seqMu is the power mutex: it covers the whole bring-up/teardown chain
// and is never held during steady-state traffic.
var seqMu sync.Mutex

// teardownBudget bounds how long PowerOff may take.
const teardownBudget = 100 * time.Millisecond

// Device is the live state of one powered-on chip: the host controller,
// its two SDIO functions, the command manager and bus stack built on
// top of them, and the identity learned during bring-up. The zero value
// is not usable; build one with PowerOn.
type Device struct {
	board sg2002.Board

	host *sdhci.Controller
	f1   *sdio.Function
	f2   *sdio.Function

	cmdMgr   *cmdmgr.Manager
	busStack *bus.Stack

	Product  chip.Product
	Revision uint8
	HFlag    uint8
}

// stageFailure names the bring-up stage that failed, so callers can log
// or branch on where PowerOn gave up.
type stageFailure struct {
	stage string
	err   error
}

func (f *stageFailure) Error() string { return f.stage + ": " + f.err.Error() }
func (f *stageFailure) Unwrap() error { return f.err }

func fail(stage string, err error) error {
	log.Printf("power: stage %q failed: %v", stage, err)
	return &stageFailure{stage: stage, err: err}
}

// PowerOn runs the full bring-up chain: GPIO power sequence, host init,
// card enumeration, function enable, CIS-based chip identification,
// per-chip register setup, system-config, firmware upload, patch-table
// configuration and start-app. On any failure it leaves no worker threads
// running and no device state behind, so a second PowerOn call can retry
// from scratch.
func PowerOn(board sg2002.Board) (*Device, error) {
	seqMu.Lock()
	defer seqMu.Unlock()

	if err := runPowerSequence(board); err != nil {
		return nil, fail("power-sequence", err)
	}

	host := sdhci.New()
	if err := hostInit(host); err != nil {
		return nil, fail("host-init", err)
	}

	if _, err := host.Enumerate(); err != nil {
		return nil, fail("enumerate", err)
	}
	log.Printf("power: stage enumerate done")

	f1 := sdio.New(host, 1)
	if err := f1.Enable(); err != nil {
		return nil, fail("function-enable", err)
	}
	log.Printf("power: stage function-enable done")

	product, err := identifyChip(f1)
	if err != nil {
		return nil, fail("cis-identify", err)
	}
	log.Printf("power: stage cis-identify done: product=%s", product)

	var f2 *sdio.Function
	if requiresFunction2(product) {
		f2 = sdio.New(host, 2)
		if err := f2.Enable(); err != nil {
			return nil, fail("function-enable", err)
		}
	}

	if chip.KeepsSingleBitBus(product) {
		log.Printf("power: keeping single-bit SDIO bus for %s", product)
	} else if err := f1.EnableBusWidth4(); err != nil {
		return nil, fail("register-setup", err)
	}
	log.Printf("power: stage register-setup done")

	cmdMgr := cmdmgr.New()
	busStack := bus.New(product, f1, functionIO(f2), cmdMgr)
	host.OnSDIOIRQ(busStack.NotifySDIOIRQ)
	busStack.Start()

	rev, hflag, err := readRevision(busStack, product)
	if err != nil {
		busStack.Stop()
		return nil, fail("chip-system-config", err)
	}

	if product == chip.AIC8801 {
		if err := chip.CheckAIC8801Revision(rev); err != nil {
			busStack.Stop()
			return nil, fail("chip-system-config", err)
		}
		if err := firmware.SystemConfigPreUpload(busStack, cmdmgr.CommandTimeout); err != nil {
			busStack.Stop()
			return nil, fail("chip-system-config", err)
		}
	}
	log.Printf("power: stage chip-system-config done: rev=%d hflag=%d", rev, hflag)

	if err := uploadFirmware(busStack, product, rev, hflag != 0); err != nil {
		busStack.Stop()
		return nil, fail("fw-upload", err)
	}
	log.Printf("power: stage fw-upload done")

	if product == chip.AIC8801 {
		if err := firmware.PatchConfig(busStack, cmdmgr.CommandTimeout); err != nil {
			busStack.Stop()
			return nil, fail("fw-upload", err)
		}
		if err := firmware.SysConfigMasked(busStack, cmdmgr.CommandTimeout); err != nil {
			busStack.Stop()
			return nil, fail("fw-upload", err)
		}
	}

	if err := firmware.StartApp(busStack, firmware.RAMFmacFWAddr, lmac.BootTypeAuto, cmdmgr.CommandTimeout); err != nil {
		busStack.Stop()
		return nil, fail("start-app", err)
	}
	log.Printf("power: stage start-app done")

	time.Sleep(board.PostInitWait)

	return &Device{
		board:    board,
		host:     host,
		f1:       f1,
		f2:       f2,
		cmdMgr:   cmdMgr,
		busStack: busStack,
		Product:  product,
		Revision: rev,
		HFlag:    hflag,
	}, nil
}

// Bus returns the device's BusStack, the entry point upper layers use
// for steady-state IPC once PowerOn has returned successfully.
func (d *Device) Bus() *bus.Stack {
	return d.busStack
}

// PowerOff implements the symmetric teardown: disable the SDIO functions via
// CCCR, stop both worker threads, and clear the device's own state, all
// within teardownBudget.
func (d *Device) PowerOff() error {
	seqMu.Lock()
	defer seqMu.Unlock()

	deadline := time.Now().Add(teardownBudget)

	d.busStack.Stop()

	disableFunction(d.f1)
	disableFunction(d.f2)

	pin, err := d.board.PowerPin()
	if err == nil {
		pin.Low()
	}

	*d = Device{}

	if remaining := time.Until(deadline); remaining < 0 {
		log.Printf("power: teardown exceeded budget by %s", -remaining)
	}

	return nil
}

func disableFunction(f *sdio.Function) {
	if f == nil {
		return
	}
	if err := f.Disable(); err != nil {
		log.Printf("power: teardown: function disable failed: %v", err)
	}
}

// runPowerSequence drives the WiFi power-enable GPIO low then high with
// the board's configured hold times, sets the SDIO pinmux, and waits
// for the card to stabilize.
func runPowerSequence(board sg2002.Board) error {
	pin, err := board.PowerPin()
	if err != nil {
		return err
	}

	sg2002.SetPinmuxGPIOMode(regio.Write)
	pin.Out()

	pin.Low()
	time.Sleep(board.PowerLowHold)

	pin.High()
	time.Sleep(board.PowerHighHold)

	sg2002.SetPinmuxSDIOMode(regio.Write)
	time.Sleep(board.PowerStableWait)

	log.Printf("power: stage power-sequence done")
	return nil
}

// hostInit releases the SD1 reset line, enables its three clocks, and
// runs the controller's own register bring-up.
func hostInit(host *sdhci.Controller) error {
	regio.Set(sdhci.SoftRstn0, sdhci.SoftRstnSD1Bit)

	regio.Set(sdhci.ClkEn0, sdhci.ClkEnAXIBit)
	regio.Set(sdhci.ClkEn0, sdhci.ClkEnFuncBit)
	regio.Set(sdhci.ClkEn0, sdhci.ClkEn100kBit)

	return host.Init()
}

// requiresFunction2 reports whether product's bus traffic runs over
// function 2's fixed message port.
func requiresFunction2(product chip.Product) bool {
	return product != chip.AIC8801
}

// identifyChip reads F1's CIS and matches the (vendor, device) pair
// against the known chip families.
func identifyChip(f1 *sdio.Function) (chip.Product, error) {
	ptr, err := f1.CommonCISPointer()
	if err != nil {
		return chip.Unknown, err
	}

	id, err := f1.Identify(ptr)
	if err != nil {
		return chip.Unknown, err
	}

	return chip.Match(id.Vendor, id.Device)
}

// requester is the subset of bus.Stack the functions below need,
// declared locally (mirroring firmware.sender) so fakes can exercise
// them without a real bus stack.
type requester interface {
	Request(msg *lmac.Msg, cfmID uint16, out []byte, timeout time.Duration) (int, error)
}

// readRevision performs the DBG_MEM_READ_REQ/CFM round trip that
// recovers the chip's silicon revision (and, for DC/D80 families, the
// H-flag) over the freshly started bus stack.
func readRevision(r requester, product chip.Product) (rev uint8, hflag uint8, err error) {
	return chip.Revision(product, func(addr uint32) (uint32, error) {
		return firmware.ReadMem(r, addr, cmdmgr.ChipRevisionTimeout)
	})
}

// uploadFirmware selects the firmware table for (product, rev, hflag)
// and uploads the WiFi blob to the card.
func uploadFirmware(r requester, product chip.Product, rev uint8, isChipIDH bool) error {
	entries, ok := firmware.List(product, rev, isChipIDH)
	if !ok {
		return driverr.Newf("fw-upload", driverr.KindNoDevice, "no firmware table for %s rev=%d", product, rev)
	}

	data, err := firmware.ByName(entries[0].WlFw)
	if err != nil {
		return err
	}

	return firmware.UploadBlocks(r, firmware.RAMFmacFWAddr, data, cmdmgr.UploadBlockTimeout)
}

// functionIO widens a possibly-nil *sdio.Function to bus.Stack's funcIO
// interface, since a nil *sdio.Function is not itself a nil interface.
func functionIO(f *sdio.Function) interface {
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, val uint8) error
	ReadFIFO(addr uint32, buf []byte) error
	WriteFIFO(addr uint32, buf []byte) error
} {
	if f == nil {
		return nil
	}
	return f
}
