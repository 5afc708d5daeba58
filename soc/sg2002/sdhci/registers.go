// Package sdhci implements the L0 HostController layer: an SDHCI-style
// driver for the SG2002 SD1 controller, with both programmed-IO and
// SDMA data paths, modeled on the register-sequence style of
// imx6/usdhc (wait-for-bit-then-command, interrupt-driven completion
// via condition variables) adapted to a standards-layout SDHCI block
// instead of NXP's uSDHC.
package sdhci

import "time"

// MMIO base addresses.
const (
	SD1Base   = 0x04320000
	ResetBase = 0x03003000
	ClockBase = 0x03002000
	PinmuxBase = 0x03001000
)

// Reset generator.
const (
	SoftRstn0     = ResetBase + 0x000
	SoftRstnSD1Bit = 17
)

// Clock generator.
const (
	ClkEn0       = ClockBase + 0x000
	ClkEnAXIBit  = 21
	ClkEnFuncBit = 22
	ClkEn100kBit = 23
)

// Pinmux offsets.
const (
	PinmuxSDData0 = PinmuxBase + 0xD0
	PinmuxSDData1 = PinmuxBase + 0xD4
	PinmuxSDData2 = PinmuxBase + 0xD8
	PinmuxSDData3 = PinmuxBase + 0xDC
	PinmuxSDCmd   = PinmuxBase + 0xE0
	PinmuxSDClk   = PinmuxBase + 0xE4
	PinmuxWifiPwr = PinmuxBase + 0x04C

	PinmuxSDIOFunction = 0x0
	PinmuxGPIOFunction = 0x3
)

// WiFi power-enable GPIO: controller 0, pin 26.
const (
	WifiPowerGPIOController = 0
	WifiPowerGPIOPin        = 26
)

// SDHCI controller register offsets.
const (
	RegSDMAAddress    = 0x00
	RegBlkSizeAndCnt  = 0x04
	RegArgument       = 0x08
	RegTransferMode   = 0x0C // 16-bit
	RegCommand        = 0x0E // 16-bit; 0x0C/0x0E combine into one 32-bit write
	RegResp31_0       = 0x10
	RegResp63_32      = 0x14
	RegBufData        = 0x20
	RegPresentState   = 0x24
	RegHostCtrl1      = 0x28
	RegPowerControl   = 0x29 // 8-bit
	RegBlockGap       = 0x2A
	RegWakeUp         = 0x2B
	RegClkCtlSwrst    = 0x2C
	RegTimeoutControl = 0x2E // 8-bit
	RegIntStatus      = 0x30
	RegIntStatusEn    = 0x34
	RegIntSignalEn    = 0x38
	RegVendorAreaPtr  = 0xE8
)

// PRESENT_STATE bits.
const (
	PresentCmdInhibit    = 0 // CIHB
	PresentDatInhibit    = 1 // CDIHB
	PresentBufWriteReady = 10
	PresentBufReadReady  = 11
)

// TRANSFER_MODE bits.
const (
	TransferModeDMAEnable        = 1 << 0
	TransferModeBlockCountEnable = 1 << 1
	TransferModeMultiBlock       = 1 << 5
	TransferModeDataDirRead      = 1 << 4
)

// HOST_CTRL1 bits.
const (
	HostCtrl1DMASelShift = 3
	HostCtrl1DMASelMask  = 0x3
	HostCtrl1DMASelSDMA  = 0x0
	HostCtrl1DataWidth4  = 1
	HostCtrl1CardDetectTestLevel  = 6
	HostCtrl1CardDetectSignalSel  = 7
)

// POWER_CONTROL bits.
const (
	PowerControlOn     = 0x01
	PowerControl3_3V    = 0x0E
)

// CLK_CTL_SWRST bits.
const (
	SwrstAll    = 24
	SwrstCmd    = 25
	SwrstDat    = 26
	IntClkEn    = 0
	IntClkStable = 1
	SDClkEn     = 2
	FreqSelShift = 8
	FreqSelMask  = 0xFF
)

// Vendor-specific PHY area.
const (
	MSHCCtrlOffset    = 0x00
	PHYTxRxDlyOffset  = 0x170 // relative to vendor base
	PHYConfigOffset   = 0x4
)

// INT_STATUS bits.
const (
	IntResponse   = 0x00000001
	IntDataEnd    = 0x00000002
	IntDMAEnd     = 0x00000008
	IntSpaceAvail = 0x00000010
	IntDataAvail  = 0x00000020
	IntCardInt    = 0x00000100
	IntRetune     = 0x00001000
	IntTimeout    = 0x00010000
	IntCRC        = 0x00020000
	IntEndBit     = 0x00040000
	IntIndex      = 0x00080000
	IntDataTimeout = 0x00100000
	IntDataCRC    = 0x00200000
	IntDataEndBit = 0x00400000
	IntBusPower   = 0x00800000
	IntAutoCmdErr = 0x01000000
	IntADMAError  = 0x02000000
	IntBlkGap     = 0x00000004
)

// CMD_MASK / DATA_MASK groupings.
const (
	CmdMask = IntResponse | IntTimeout | IntCRC | IntEndBit | IntIndex | IntAutoCmdErr

	DataMask = IntDataEnd | IntDMAEnd | IntDataAvail | IntSpaceAvail |
		IntDataTimeout | IntDataCRC | IntDataEndBit | IntADMAError | IntBlkGap
)

// Default IRQ mask.
const DefaultIntMask = IntResponse | IntDataEnd | IntDMAEnd | IntBusPower | IntRetune | CmdMask | DataMask

// Timeouts.
const (
	CommandTimeout = 1000 * time.Millisecond
	InhibitTimeout = 100 * time.Millisecond
	InhibitPoll    = 1 * time.Millisecond
)

// Clock targets.
const (
	IdentificationClockHz = 400000
	// The internal base clock feeding the divisor formula. SG2002
	// derives SD1's base clock from its PLL at 200 MHz, the same base
	// frequency the SDHCI divisor formula in assumes.
	InternalClockHz = 200000000
)

// CMD52/CMD53 argument field layout.
const (
	SDIOCmdArgWriteBit  = 31
	SDIOCmdArgFnShift   = 28
	SDIOCmdArgFnMask    = 0x7
	SDIOCmdArgRawShift  = 27
	SDIOCmdArgAddrShift = 9
	SDIOCmdArgAddrMask  = 0x1FFFF
	SDIOCmdArgDataMask  = 0xFF

	SDIOCmd53BlockModeBit = 27
	SDIOCmd53IncrAddrBit  = 26
	SDIOCmd53CountMask    = 0x1FF
)

// R5 error mask, bits 16..23 of RESP31_0.
const (
	R5Error          = 0x01
	R5FunctionNumber = 0x02
	R5OutOfRange     = 0x08
	R5ErrorMask      = R5Error | R5FunctionNumber | R5OutOfRange
)
