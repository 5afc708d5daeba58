// Package chip implements the L2 ChipIdent layer: matching a CIS
// (vendor, device) pair against the four recognized AIC8800 product
// families and reading back the chip revision over the LMAC debug
// interface, grounded on the allow-list and masking rules given for
// chip identification.
package chip

import "github.com/sg2002/aic8800/driverr"

// Product enumerates the recognized chip families.
type Product int

const (
	Unknown Product = iota
	AIC8801
	AIC8800DC
	AIC8800DW
	AIC8800D80
	AIC8800D80X2
)

func (p Product) String() string {
	switch p {
	case AIC8801:
		return "AIC8801"
	case AIC8800DC:
		return "AIC8800DC"
	case AIC8800DW:
		return "AIC8800DW"
	case AIC8800D80:
		return "AIC8800D80"
	case AIC8800D80X2:
		return "AIC8800D80X2"
	default:
		return "unknown"
	}
}

// entry pairs a (vendor, device) CIS identity with the product it
// names.
type entry struct {
	vendor, device uint16
	product        Product
}

var allowList = []entry{
	{0x5449, 0x0145, AIC8801},
	{0x5449, 0x0146, AIC8801}, // function-2 identity variant
	{0xC8A1, 0xC08D, AIC8800DC},
	{0xC8A1, 0x0082, AIC8800D80},
	{0xC8A1, 0x0182, AIC8800D80}, // function-2 identity variant
	{0xC8A1, 0x2082, AIC8800D80X2},
}

// Match identifies the product family for a (vendor, device) CIS
// identity pair, failing with no-device for anything outside the
// allow-list. AIC8800DC and AIC8800DW share one vendor/device pair; Match
// always returns AIC8800DC for that pair, and callers needing to distinguish
// DW must do so through other means (this driver does not define any).
func Match(vendor, device uint16) (Product, error) {
	for _, e := range allowList {
		if e.vendor == vendor && e.device == device {
			return e.product, nil
		}
	}

	return Unknown, driverr.New("chip-match", driverr.KindNoDevice)
}

// KeepsSingleBitBus reports whether p must stay in 1-bit SDIO mode on
// this SoC.
func KeepsSingleBitBus(p Product) bool {
	return p == AIC8801
}

// chipDebugMemBase is where the chip revision word lives.
const chipDebugMemBase = 0x40500000

// Revision reads the chip revision via a DBG_MEM_READ_REQ/CFM
// round-trip at chipDebugMemBase. For DC/D80 families the H-flag (word
// bits 22:23) is masked out of rev and returned separately as hflag.
// readMem performs one DBG_MEM_READ_REQ/CFM exchange and returns
// the 32-bit memory word, so this package stays independent of the wire
// framing used to reach the firmware (see the firmware package).
func Revision(p Product, readMem func(addr uint32) (uint32, error)) (rev uint8, hflag uint8, err error) {
	word, err := readMem(chipDebugMemBase)
	if err != nil {
		return 0, 0, err
	}

	rev = uint8(word >> 16)

	switch p {
	case AIC8800DC, AIC8800DW, AIC8800D80, AIC8800D80X2:
		hflag = uint8(word>>22) & 0x3
		rev &= 0x3F
	}

	return rev, hflag, nil
}

// validAIC8801Revisions lists the accepted revision codes for AIC8801:
// 3 (U02) and 7 (U03/U04).
var validAIC8801Revisions = map[uint8]string{
	3: "U02",
	7: "U03/U04",
}

// CheckAIC8801Revision validates rev against the known AIC8801
// silicon revisions.
func CheckAIC8801Revision(rev uint8) error {
	if _, ok := validAIC8801Revisions[rev]; !ok {
		return driverr.Newf("chip-revision", driverr.KindNoDevice, "unrecognized AIC8801 revision 0x%x", rev)
	}

	return nil
}
