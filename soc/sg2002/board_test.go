package sg2002

import (
	"testing"
	"time"

	"github.com/sg2002/aic8800/soc/sg2002/sdhci"
)

func TestDefaultMatchesReferenceBoard(t *testing.T) {
	b := Default()

	if b.GPIOController != 0 || b.GPIOPin != 26 {
		t.Errorf("got controller=%d pin=%d, want 0/26", b.GPIOController, b.GPIOPin)
	}
	if b.PowerLowHold != 50*time.Millisecond || b.PowerHighHold != 50*time.Millisecond {
		t.Errorf("got low=%s high=%s, want 50ms/50ms", b.PowerLowHold, b.PowerHighHold)
	}
	if b.PowerStableWait != 1000*time.Millisecond {
		t.Errorf("got stable wait %s, want 1000ms", b.PowerStableWait)
	}
	if b.PostInitWait != 500*time.Millisecond {
		t.Errorf("got post-init wait %s, want 500ms", b.PostInitWait)
	}
}

func TestSetPinmuxGPIOMode(t *testing.T) {
	var gotAddr, gotVal uint32
	SetPinmuxGPIOMode(func(addr, val uint32) {
		gotAddr, gotVal = addr, val
	})

	if gotAddr != sdhci.PinmuxWifiPwr || gotVal != sdhci.PinmuxGPIOFunction {
		t.Errorf("got (0x%x, %d), want (0x%x, %d)", gotAddr, gotVal, sdhci.PinmuxWifiPwr, sdhci.PinmuxGPIOFunction)
	}
}

func TestSetPinmuxSDIOModeWritesAllSixRegisters(t *testing.T) {
	want := map[uint32]bool{
		sdhci.PinmuxSDData0: true, sdhci.PinmuxSDData1: true, sdhci.PinmuxSDData2: true,
		sdhci.PinmuxSDData3: true, sdhci.PinmuxSDCmd: true, sdhci.PinmuxSDClk: true,
	}

	got := map[uint32]uint32{}
	SetPinmuxSDIOMode(func(addr, val uint32) {
		got[addr] = val
	})

	if len(got) != len(want) {
		t.Fatalf("wrote %d registers, want %d", len(got), len(want))
	}
	for addr := range want {
		if got[addr] != sdhci.PinmuxSDIOFunction {
			t.Errorf("addr 0x%x = %d, want %d", addr, got[addr], sdhci.PinmuxSDIOFunction)
		}
	}
}
