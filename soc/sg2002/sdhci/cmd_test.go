package sdhci

import "testing"

func TestSdioArg52(t *testing.T) {
	arg := sdioArg52(true, 1, 0x02, 0xAA)

	if arg&(1<<SDIOCmdArgWriteBit) == 0 {
		t.Error("expected write bit set")
	}

	if got := (arg >> SDIOCmdArgFnShift) & SDIOCmdArgFnMask; got != 1 {
		t.Errorf("fn field = %d, want 1", got)
	}

	if got := (arg >> SDIOCmdArgAddrShift) & SDIOCmdArgAddrMask; got != 0x02 {
		t.Errorf("addr field = 0x%x, want 0x02", got)
	}

	if got := arg & SDIOCmdArgDataMask; got != 0xAA {
		t.Errorf("data field = 0x%x, want 0xAA", got)
	}
}

func TestSdioArg53ByteMode512(t *testing.T) {
	// A 512-byte read encodes count-field 0.
	arg := sdioArg53(false, 1, false, 0x100, 512)

	if got := arg & SDIOCmd53CountMask; got != 0 {
		t.Errorf("count field = %d, want 0 for a 512-byte transfer", got)
	}

	if arg&(1<<SDIOCmd53BlockModeBit) != 0 {
		t.Error("expected block_mode bit clear for byte mode")
	}
}

func TestSdioArg53BlockMode(t *testing.T) {
	arg := sdioArg53(true, 1, true, 0x0, 511)

	if arg&(1<<SDIOCmd53BlockModeBit) == 0 {
		t.Error("expected block_mode bit set")
	}

	if got := arg & SDIOCmd53CountMask; got != 511 {
		t.Errorf("block count field = %d, want 511", got)
	}
}

func TestMakeBlkSz(t *testing.T) {
	if got, want := makeBlkSz(7, 512), uint32(7<<12|512); got != want {
		t.Errorf("makeBlkSz(7, 512) = 0x%x, want 0x%x", got, want)
	}
}

func TestNextSDMABoundary(t *testing.T) {
	cases := []struct {
		base uint32
		want uint32
	}{
		{0, sdmaBoundary},
		{1, sdmaBoundary},
		{sdmaBoundary - 1, sdmaBoundary},
		{sdmaBoundary, 2 * sdmaBoundary},
	}

	for _, c := range cases {
		if got := nextSDMABoundary(c.base); got != c.want {
			t.Errorf("nextSDMABoundary(%d) = %d, want %d", c.base, got, c.want)
		}
	}
}
