package power

import (
	"testing"
	"time"

	"github.com/sg2002/aic8800/chip"
	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/firmware"
	"github.com/sg2002/aic8800/lmac"
	"github.com/sg2002/aic8800/soc/sg2002/sdio"
)

// fakeHost is an in-memory CCCR/CIS image, addressed exactly like the
// real controller, for testing identifyChip without hardware (mirrors
// sdio package's own fakeHost).
type fakeHost struct {
	mem map[uint32]uint8
}

func newFakeHost() *fakeHost {
	return &fakeHost{mem: make(map[uint32]uint8)}
}

func (h *fakeHost) key(fn uint8, addr uint32) uint32 { return uint32(fn)<<24 | addr }

func (h *fakeHost) CMD52Read(fn uint8, addr uint32) (uint8, error) {
	return h.mem[h.key(fn, addr)], nil
}

func (h *fakeHost) CMD52Write(fn uint8, addr uint32, data uint8) error {
	h.mem[h.key(fn, addr)] = data
	return nil
}

func (h *fakeHost) CMD53ReadBytes(fn uint8, addr uint32, buf []byte) error  { return nil }
func (h *fakeHost) CMD53WriteBytes(fn uint8, addr uint32, buf []byte) error { return nil }
func (h *fakeHost) SetBusWidth4(enable bool)                               {}

// writeManfidCIS populates host with a single CISTPL_MANFID tuple at
// addr, naming (vendor, device), followed by CISTPL_END.
func writeManfidCIS(host *fakeHost, addr uint32, vendor, device uint16) {
	host.mem[host.key(0, addr)] = 0x20   // CISTPL_MANFID
	host.mem[host.key(0, addr+1)] = 4    // link: 4 bytes follow
	host.mem[host.key(0, addr+2)] = uint8(vendor)
	host.mem[host.key(0, addr+3)] = uint8(vendor >> 8)
	host.mem[host.key(0, addr+4)] = uint8(device)
	host.mem[host.key(0, addr+5)] = uint8(device >> 8)
	host.mem[host.key(0, addr+6)] = 0xFF // CISTPL_END
}

func TestIdentifyChipMatchesAIC8801(t *testing.T) {
	host := newFakeHost()

	const cisPtr = 0x40
	host.mem[host.key(0, 0x09)] = uint8(cisPtr)
	host.mem[host.key(0, 0x0A)] = uint8(cisPtr >> 8)
	host.mem[host.key(0, 0x0B)] = uint8(cisPtr >> 16)
	writeManfidCIS(host, cisPtr, 0x5449, 0x0145)

	f1 := sdio.New(host, 1)

	product, err := identifyChip(f1)
	if err != nil {
		t.Fatalf("identifyChip: %v", err)
	}
	if product != chip.AIC8801 {
		t.Errorf("got %s, want AIC8801", product)
	}
}

func TestIdentifyChipRejectsUnknownVendor(t *testing.T) {
	host := newFakeHost()

	const cisPtr = 0x40
	host.mem[host.key(0, 0x09)] = uint8(cisPtr)
	writeManfidCIS(host, cisPtr, 0xDEAD, 0xBEEF)

	f1 := sdio.New(host, 1)

	if _, err := identifyChip(f1); !driverr.Is(err, driverr.KindNoDevice) {
		t.Errorf("got %v, want no-device", err)
	}
}

func TestRequiresFunction2(t *testing.T) {
	cases := []struct {
		product chip.Product
		want    bool
	}{
		{chip.AIC8801, false},
		{chip.AIC8800DC, true},
		{chip.AIC8800D80, true},
		{chip.AIC8800D80X2, true},
	}

	for _, c := range cases {
		if got := requiresFunction2(c.product); got != c.want {
			t.Errorf("requiresFunction2(%s) = %v, want %v", c.product, got, c.want)
		}
	}
}

// fakeRequester answers DBG_MEM_READ requests from an in-memory word map,
// records DBG_MEM_BLOCK_WRITE payloads, and confirms every other request
// without effect.
type fakeRequester struct {
	mem    map[uint32]uint32
	blocks [][]byte
}

func (r *fakeRequester) Request(msg *lmac.Msg, cfmID uint16, out []byte, timeout time.Duration) (int, error) {
	switch msg.ID {
	case lmac.DbgMemReadReq:
		addr := uint32(msg.Param[0]) | uint32(msg.Param[1])<<8 | uint32(msg.Param[2])<<16 | uint32(msg.Param[3])<<24
		val := r.mem[addr]
		return copy(out, []byte{0, 0, 0, 0, byte(val), byte(val >> 8), byte(val >> 16), byte(val >> 24)}), nil
	case lmac.DbgMemBlockWriteReq:
		r.blocks = append(r.blocks, append([]byte(nil), msg.Param[8:]...))
		return 0, nil
	}
	return 0, nil
}

func TestReadRevisionMasksHFlagForDCFamily(t *testing.T) {
	// bits 16-23 = 0xC2: revision 0x02 in bits 16-21, H-flag 3 in bits
	// 22-23, masked out of rev and returned separately.
	r := &fakeRequester{mem: map[uint32]uint32{0x40500000: 0x00C20000}}

	rev, hflag, err := readRevision(r, chip.AIC8800DC)
	if err != nil {
		t.Fatalf("readRevision: %v", err)
	}
	if rev != 0x02 {
		t.Errorf("rev = 0x%x, want 0x02", rev)
	}
	if hflag != 3 {
		t.Errorf("hflag = %d, want 3", hflag)
	}
}

func TestUploadFirmwareRejectsUnknownRevision(t *testing.T) {
	r := &fakeRequester{mem: map[uint32]uint32{}}

	err := uploadFirmware(r, chip.AIC8801, 0xFF, false)
	if !driverr.Is(err, driverr.KindNoDevice) {
		t.Errorf("got %v, want no-device", err)
	}
}

func TestUploadFirmwareUploadsRegisteredBlob(t *testing.T) {
	firmware.Register("fmacfw.bin", []byte{1, 2, 3, 4, 5})
	r := &fakeRequester{mem: map[uint32]uint32{}}

	if err := uploadFirmware(r, chip.AIC8801, 3, false); err != nil {
		t.Fatalf("uploadFirmware: %v", err)
	}
	if len(r.blocks) != 1 || len(r.blocks[0]) != 5 {
		t.Errorf("blocks = %v", r.blocks)
	}
}

func TestStageFailureWrapsUnderlyingError(t *testing.T) {
	err := fail("enumerate", driverr.New("enumerate", driverr.KindTimeout))

	if !driverr.Is(errUnwrap(err), driverr.KindTimeout) {
		t.Errorf("got %v, want a wrapped timeout", err)
	}
}

func errUnwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return err
}
