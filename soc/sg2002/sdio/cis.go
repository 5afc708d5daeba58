package sdio

import "github.com/sg2002/aic8800/driverr"

// CISTPL_MANFID, the only tuple this driver inspects.
const cistplManfid = 0x20
const cistplEnd = 0xFF

// cisAddrMask is the 17-bit addressing window CMD52 uses for CIS access.
const cisAddrMask = 0x1FFFF
const cisAddrLimit = 128 * 1024

// Identity is the (vendor, device) pair read from a function's CIS.
type Identity struct {
	Vendor uint16
	Device uint16
}

// CommonCISPointer reads the 24-bit little-endian common CIS pointer at
// CCCR 0x09/0x0A/0x0B.
func (f *Function) CommonCISPointer() (uint32, error) {
	return f.readCISPointer(0, cccrCISPtr0)
}

// FunctionCISPointer reads the per-function CIS pointer at
// function-base + 0x09.
func (f *Function) FunctionCISPointer() (uint32, error) {
	return f.readCISPointer(0, fbrBase(f.n)+fbrCISPtr0)
}

func (f *Function) readCISPointer(fn uint8, addr uint32) (uint32, error) {
	b0, err := f.host.CMD52Read(fn, addr)
	if err != nil {
		return 0, err
	}
	b1, err := f.host.CMD52Read(fn, addr+1)
	if err != nil {
		return 0, err
	}
	b2, err := f.host.CMD52Read(fn, addr+2)
	if err != nil {
		return 0, err
	}

	ptr := uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16
	if ptr > cisAddrLimit {
		return 0, driverr.New("cis-pointer", driverr.KindInvalidArgument)
	}

	return ptr & cisAddrMask, nil
}

// Identify walks the CIS tuple chain at ptr looking for CISTPL_MANFID,
// returning the (vendor, device) pair.
func (f *Function) Identify(ptr uint32) (*Identity, error) {
	addr := ptr & cisAddrMask

	for {
		if addr > cisAddrLimit {
			return nil, driverr.New("cis-identify", driverr.KindInvalidArgument)
		}

		code, err := f.host.CMD52Read(0, addr)
		if err != nil {
			return nil, err
		}

		if code == cistplEnd {
			return nil, driverr.New("cis-identify", driverr.KindNoDevice)
		}

		link, err := f.host.CMD52Read(0, addr+1)
		if err != nil {
			return nil, err
		}

		if code == cistplManfid && link >= 4 {
			b0, err := f.host.CMD52Read(0, addr+2)
			if err != nil {
				return nil, err
			}
			b1, err := f.host.CMD52Read(0, addr+3)
			if err != nil {
				return nil, err
			}
			b2, err := f.host.CMD52Read(0, addr+4)
			if err != nil {
				return nil, err
			}
			b3, err := f.host.CMD52Read(0, addr+5)
			if err != nil {
				return nil, err
			}

			return &Identity{
				Vendor: uint16(b0) | uint16(b1)<<8,
				Device: uint16(b2) | uint16(b3)<<8,
			}, nil
		}

		addr += 2 + uint32(link)
	}
}
