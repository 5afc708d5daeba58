package firmware

import (
	"log"
	"time"
)

// syscfgEntry8801 writes 0x4050_0014 etc. unconditionally, in strict order,
// before firmware upload, grounded on AICBSP_SYSCFG_TBL_8801.
type syscfgEntry8801 struct {
	addr uint32
	data uint32
}

// sysCfgTbl8801 must not be reordered: PMIC bring-up and the bootrom
// panic fix depend on executing in this exact sequence.
var sysCfgTbl8801 = []syscfgEntry8801{
	{0x40500014, 0x00000101},
	{0x40500018, 0x00000109},
	{0x40500004, 0x00000010},
	{0x40040000, 0x00001AC8}, // U02 bootrom panic fix
	{0x40040084, 0x00011580},
	{0x40040080, 0x00000001},
	{0x40100058, 0x00000000},
	{0x50000000, 0x03220204}, // PMIC interface init
	{0x50019150, 0x00000002}, // 26 MHz XTAL, div1
	{0x50017008, 0x00000000}, // stop watchdog
}

// SystemConfigPreUpload runs sysCfgTbl8801 in order, logging progress
// every 5 entries, before firmware upload begins.
func SystemConfigPreUpload(s sender, timeout time.Duration) error {
	return runSyscfgTable(s, sysCfgTbl8801, timeout, "pre-upload")
}

func runSyscfgTable(s sender, tbl []syscfgEntry8801, timeout time.Duration, stage string) error {
	n := len(tbl)
	log.Printf("firmware: system-config (%s): start (%d entries)", stage, n)

	for i, e := range tbl {
		if err := WriteMem(s, e.addr, e.data, timeout); err != nil {
			return err
		}

		if (i+1)%5 == 0 || i+1 == n {
			log.Printf("firmware: system-config (%s): progress %d/%d", stage, i+1, n)
		}
	}

	log.Printf("firmware: system-config (%s): done", stage)
	return nil
}

// maskedEntry8801 is one (addr, mask, data) row for a masked system/RF
// configuration table.
type maskedEntry8801 struct {
	addr uint32
	mask uint32
	data uint32
}

var sysCfgMasked8801 = []maskedEntry8801{
	{0x40506024, 0x000000FF, 0x000000DF}, // clock gate lp_level
}

var rfCfgMasked8801 = []maskedEntry8801{
	{0x40344058, 0x00800000, 0x00000000}, // PLL TRX
}

// SysConfigMasked runs the post-upload masked system and RF configuration
// tables.
func SysConfigMasked(s sender, timeout time.Duration) error {
	for _, e := range sysCfgMasked8801 {
		if err := MaskWriteMem(s, e.addr, e.mask, e.data, timeout); err != nil {
			return err
		}
	}

	for _, e := range rfCfgMasked8801 {
		if err := MaskWriteMem(s, e.addr, e.mask, e.data, timeout); err != nil {
			return err
		}
	}

	return nil
}

// patchOffsetValue is one (offset, value) row of the AIC8801 patch table
// applied relative to the patch blob's runtime config base, grounded on
// PATCH_TBL_8801.
type patchOffsetValue struct {
	offset uint32
	value  uint32
}

var patchTbl8801 = []patchOffsetValue{
	{0x0104, 0x00000000}, // link_det_5g
	{0x004C, 0x0000004B}, // pkt_cnt_1724
	{0x0050, 0x0011FC00}, // ipc_base_addr
}

// Patch-table registers and addresses.
const (
	patchStartAddr8801 uint32 = 0x1E6000
	patchAddrReg8801   uint32 = 0x1E5318
	patchNumReg8801    uint32 = 0x1E531C
)

// ConfigBaseAddr (main firmware load address + 0x180) holds the config
// base word that the patch table's offsets are relative to.
const ConfigBaseAddr = RAMFmacFWAddr + 0x180

// PatchConfig applies the AIC8801 patch table after both the main
// firmware and patch blobs have been uploaded.
func PatchConfig(s sender, timeout time.Duration) error {
	configBase, err := ReadMem(s, ConfigBaseAddr, timeout)
	if err != nil {
		return err
	}

	if err := WriteMem(s, patchAddrReg8801, patchStartAddr8801, timeout); err != nil {
		return err
	}

	patchNum := uint32(len(patchTbl8801) * 2)
	if err := WriteMem(s, patchNumReg8801, patchNum, timeout); err != nil {
		return err
	}

	for i, e := range patchTbl8801 {
		addr := patchStartAddr8801 + uint32(i)*8
		if err := WriteMem(s, addr, e.offset+configBase, timeout); err != nil {
			return err
		}
		if err := WriteMem(s, addr+4, e.value, timeout); err != nil {
			return err
		}
	}

	return nil
}
