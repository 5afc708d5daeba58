package sdio

import "testing"

// fakeHost is an in-memory CCCR/FBR/CIS image addressed exactly like
// the real controller, for testing the framing and parsing logic in
// this package without hardware.
type fakeHost struct {
	mem    map[uint32]uint8
	fifo   map[uint32][]byte // FIFO-style queues, keyed by (fn, addr), drained in order
	width4 bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{mem: make(map[uint32]uint8), fifo: make(map[uint32][]byte)}
}

func (h *fakeHost) key(fn uint8, addr uint32) uint32 {
	return uint32(fn)<<24 | addr
}

func (h *fakeHost) CMD52Read(fn uint8, addr uint32) (uint8, error) {
	return h.mem[h.key(fn, addr)], nil
}

func (h *fakeHost) CMD52Write(fn uint8, addr uint32, data uint8) error {
	h.mem[h.key(fn, addr)] = data
	return nil
}

func (h *fakeHost) CMD53ReadBytes(fn uint8, addr uint32, buf []byte) error {
	k := h.key(fn, addr)
	q := h.fifo[k]
	copy(buf, q)
	h.fifo[k] = q[len(buf):]
	return nil
}

func (h *fakeHost) CMD53WriteBytes(fn uint8, addr uint32, buf []byte) error {
	k := h.key(fn, addr)
	h.fifo[k] = append(h.fifo[k], buf...)
	return nil
}

func (h *fakeHost) SetBusWidth4(enable bool) {
	h.width4 = enable
}

func TestEnableSetsIOEnableAndPollsReady(t *testing.T) {
	host := newFakeHost()
	host.mem[host.key(0, cccrIOReady)] = 1 << 1 // function 1 ready

	f := New(host, 1)
	if err := f.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	if host.mem[host.key(0, cccrIOEnable)]&(1<<1) == 0 {
		t.Error("expected IO_ENABLE bit 1 set")
	}
}

func TestEnableAcceptsAlternateReadyBit4(t *testing.T) {
	host := newFakeHost()
	host.mem[host.key(0, cccrIOReady)] = 1 << 4

	f := New(host, 1)
	if err := f.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
}

func TestSetBlockSize512(t *testing.T) {
	host := newFakeHost()
	f := New(host, 1)

	if err := f.SetBlockSize(512); err != nil {
		t.Fatalf("SetBlockSize: %v", err)
	}

	base := fbrBase(1)
	lo := host.mem[host.key(0, base+fbrBlockSize0)]
	hi := host.mem[host.key(0, base+fbrBlockSize1)]

	if got := uint16(lo) | uint16(hi)<<8; got != 512 {
		t.Errorf("block size = %d, want 512", got)
	}
}

func TestEnableBusWidth4(t *testing.T) {
	host := newFakeHost()
	f := New(host, 1)

	if err := f.EnableBusWidth4(); err != nil {
		t.Fatalf("EnableBusWidth4: %v", err)
	}

	if !f.BusWidth4() {
		t.Error("expected BusWidth4 to report true")
	}

	if host.mem[host.key(0, cccrBusIface)] != busIfaceWidth4 {
		t.Error("expected CCCR bus interface control set to 4-bit width code")
	}
}

// writeCISManfid writes a single CISTPL_MANFID tuple at addr, terminated
// by a CISTPL_END tuple.
func writeCISManfid(host *fakeHost, addr uint32, vendor, device uint16) {
	host.mem[host.key(0, addr)] = cistplManfid
	host.mem[host.key(0, addr+1)] = 4
	host.mem[host.key(0, addr+2)] = byte(vendor)
	host.mem[host.key(0, addr+3)] = byte(vendor >> 8)
	host.mem[host.key(0, addr+4)] = byte(device)
	host.mem[host.key(0, addr+5)] = byte(device >> 8)
	host.mem[host.key(0, addr+6)] = cistplEnd
}

func TestIdentifyFindsManfidTuple(t *testing.T) {
	host := newFakeHost()
	writeCISManfid(host, 0x1000, 0x504, 0x8801)

	f := New(host, 0)
	id, err := f.Identify(0x1000)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	if id.Vendor != 0x504 || id.Device != 0x8801 {
		t.Errorf("got vendor=0x%04x device=0x%04x, want 0x504/0x8801", id.Vendor, id.Device)
	}
}

func TestIdentifySkipsUnrelatedTuplesBeforeManfid(t *testing.T) {
	host := newFakeHost()

	// an unrelated 2-byte tuple at 0x2000, then MANFID at 0x2004.
	host.mem[host.key(0, 0x2000)] = 0x15
	host.mem[host.key(0, 0x2001)] = 2
	host.mem[host.key(0, 0x2002)] = 0xAA
	host.mem[host.key(0, 0x2003)] = 0xBB
	writeCISManfid(host, 0x2004, 0x02D0, 0xD800)

	f := New(host, 0)
	id, err := f.Identify(0x2000)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	if id.Vendor != 0x02D0 || id.Device != 0xD800 {
		t.Errorf("got vendor=0x%04x device=0x%04x, want 0x02D0/0xD800", id.Vendor, id.Device)
	}
}

func TestIdentifyNoDeviceOnEndWithoutManfid(t *testing.T) {
	host := newFakeHost()
	host.mem[host.key(0, 0x3000)] = cistplEnd

	f := New(host, 0)
	if _, err := f.Identify(0x3000); err == nil {
		t.Error("expected an error when no MANFID tuple is present")
	}
}

func TestReadFIFOChunksAt512(t *testing.T) {
	host := newFakeHost()
	queued := make([]byte, 600)
	for i := range queued {
		queued[i] = byte(i)
	}
	host.fifo[host.key(1, 0x08)] = queued

	f := New(host, 1)
	buf := make([]byte, 600)
	if err := f.ReadFIFO(0x08, buf); err != nil {
		t.Fatalf("ReadFIFO: %v", err)
	}

	for i := range buf {
		if buf[i] != byte(i) {
			t.Fatalf("buf[%d] = %d, want %d", i, buf[i], byte(i))
		}
	}
}
