package sdhci

import (
	"testing"

	"github.com/sg2002/aic8800/driverr"
)

func TestCMD53ByteModeRejectsOutOfRangeLength(t *testing.T) {
	hw := New()

	if err := hw.CMD53ReadBytes(1, 0, nil); !driverr.Is(err, driverr.KindInvalidArgument) {
		t.Errorf("zero-length read: got %v, want invalid-argument", err)
	}

	if err := hw.CMD53WriteBytes(1, 0, make([]byte, 513)); !driverr.Is(err, driverr.KindInvalidArgument) {
		t.Errorf("513-byte write: got %v, want invalid-argument", err)
	}
}

func TestCMD53BlockModeRejectsOutOfRangeCount(t *testing.T) {
	hw := New()

	if err := hw.CMD53ReadBlocks(1, 0, make([]byte, 512*512), 512); !driverr.Is(err, driverr.KindInvalidArgument) {
		t.Errorf("block count 512: got %v, want invalid-argument", err)
	}

	if err := hw.CMD53WriteBlocks(1, 0, make([]byte, 0), 1); !driverr.Is(err, driverr.KindInvalidArgument) {
		t.Errorf("short buffer: got %v, want invalid-argument", err)
	}
}
