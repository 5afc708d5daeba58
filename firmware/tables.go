package firmware

import "github.com/sg2002/aic8800/chip"

// Entry names the firmware blobs loaded for one chip mode, grounded on the
// AicBspFirmware tables named per chip family/revision in the original
// driver's firmware configuration module.
type Entry struct {
	Desc       string
	BtAdid     string
	BtPatch    string
	BtTable    string
	WlFw       string
	BtExtPatch string // empty when the family carries no extended BT patch
}

// Each table holds exactly two entries: [normal work mode, RF test mode].
var (
	fwU02 = [2]Entry{
		{Desc: "normal work mode(sdio u02)", BtAdid: "fw_adid.bin", BtPatch: "fw_patch.bin", BtTable: "fw_patch_table.bin", WlFw: "fmacfw.bin"},
		{Desc: "rf test mode(sdio u02)", BtAdid: "fw_adid.bin", BtPatch: "fw_patch.bin", BtTable: "fw_patch_table.bin", WlFw: "fmacfw_rf.bin"},
	}

	fwU03 = [2]Entry{
		{Desc: "normal work mode(sdio u03)", BtAdid: "fw_adid.bin", BtPatch: "fw_patch.bin", BtTable: "fw_patch_table.bin", WlFw: "fmacfw.bin"},
		{Desc: "rf test mode(sdio u03)", BtAdid: "fw_adid.bin", BtPatch: "fw_patch.bin", BtTable: "fw_patch_table.bin", WlFw: "fmacfw_rf.bin"},
	}

	fw8800DCU01 = [2]Entry{
		{Desc: "normal work mode(8800dc sdio u01)", BtAdid: "fw_adid_8800dc_u02.bin", BtPatch: "fw_patch_8800dc_u02.bin", BtTable: "fw_patch_table_8800dc_u02.bin", WlFw: "fmacfw_patch_8800dc_u02.bin", BtExtPatch: "fw_patch_8800dc_u02_ext"},
		{Desc: "rf test mode(8800dc sdio u01)", BtAdid: "fw_adid_8800dc_u02.bin", BtPatch: "fw_patch_8800dc_u02.bin", BtTable: "fw_patch_table_8800dc_u02.bin", WlFw: "lmacfw_rf_8800dc.bin", BtExtPatch: "fw_patch_8800dc_u02_ext"},
	}

	fw8800DCU02 = [2]Entry{
		{Desc: "normal work mode(8800dc sdio u02)", BtAdid: "fw_adid_8800dc_u02.bin", BtPatch: "fw_patch_8800dc_u02.bin", BtTable: "fw_patch_table_8800dc_u02.bin", WlFw: "fmacfw_patch_8800dc_u02.bin", BtExtPatch: "fw_patch_8800dc_u02_ext"},
		{Desc: "rf test mode(8800dc sdio u02)", BtAdid: "fw_adid_8800dc_u02.bin", BtPatch: "fw_patch_8800dc_u02.bin", BtTable: "fw_patch_table_8800dc_u02.bin", WlFw: "lmacfw_rf_8800dc.bin", BtExtPatch: "fw_patch_8800dc_u02_ext"},
	}

	fw8800DCHU02 = [2]Entry{
		{Desc: "normal work mode(8800dc h sdio u02)", BtAdid: "fw_adid_8800dc_u02.bin", BtPatch: "fw_patch_8800dc_u02.bin", BtTable: "fw_patch_table_8800dc_u02.bin", WlFw: "fmacfw_patch_8800dc_u02.bin", BtExtPatch: "fw_patch_8800dc_u02_ext"},
		{Desc: "rf test mode(8800dc h sdio u02)", BtAdid: "fw_adid_8800dc_u02.bin", BtPatch: "fw_patch_8800dc_u02.bin", BtTable: "fw_patch_table_8800dc_u02.bin", WlFw: "lmacfw_rf_8800dc.bin", BtExtPatch: "fw_patch_8800dc_u02_ext"},
	}

	fw8800D80U01 = [2]Entry{
		{Desc: "normal work mode(8800d80 sdio u01)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "fmacfw_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
		{Desc: "rf test mode(8800d80 sdio u01)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "lmacfw_rf_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
	}

	fw8800D80U02 = [2]Entry{
		{Desc: "normal work mode(8800d80 sdio u02)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "fmacfw_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
		{Desc: "rf test mode(8800d80 sdio u02)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "lmacfw_rf_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
	}

	fw8800D80HU02 = [2]Entry{
		{Desc: "normal work mode(8800d80 h sdio u02)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "fmacfw_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
		{Desc: "rf test mode(8800d80 h sdio u02)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "lmacfw_rf_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
	}

	fw8800D80X2 = [2]Entry{
		{Desc: "normal work mode(8800d80x2)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "fmacfw_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
		{Desc: "rf test mode(8800d80x2)", BtAdid: "fw_adid_8800d80_u02.bin", BtPatch: "fw_patch_8800d80_u02.bin", BtTable: "fw_patch_table_8800d80_u02.bin", WlFw: "lmacfw_rf_8800d80_u02.bin", BtExtPatch: "fw_patch_8800d80_u02_ext"},
	}
)

// Chip revision codes.
const (
	revU01 = 1
	revU02 = 3
	revU03 = 7
)

// List selects the [normal, rf-test] firmware table for product at
// revision rev, masking the H-flag variant bit for DC/D80 families.
func List(product chip.Product, rev uint8, isChipIDH bool) ([2]Entry, bool) {
	switch product {
	case chip.AIC8801:
		switch rev {
		case revU02:
			return fwU02, true
		case revU03:
			return fwU03, true
		default:
			return [2]Entry{}, false
		}

	case chip.AIC8800DC, chip.AIC8800DW:
		r := rev & 0x3F
		if r != revU01 && r != revU02 && r != revU03 {
			return [2]Entry{}, false
		}
		switch {
		case isChipIDH:
			return fw8800DCHU02, true
		case r == revU01:
			return fw8800DCU01, true
		default:
			return fw8800DCU02, true
		}

	case chip.AIC8800D80:
		r := rev & 0x3F
		switch {
		case isChipIDH:
			return fw8800D80HU02, true
		case r == revU01:
			return fw8800D80U01, true
		default:
			return fw8800D80U02, true
		}

	case chip.AIC8800D80X2:
		r := rev & 0x3F
		if r >= revU03+8 {
			return fw8800D80X2, true
		}
		return [2]Entry{}, false

	default:
		return [2]Entry{}, false
	}
}
