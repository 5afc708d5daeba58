// Package firmware implements the L2 FwLoader: selecting the firmware
// table for a chip, serving blobs by name, uploading them to the card in
// 1 KiB chunks, and running the AIC8801 patch-table and system-config
// sequences, grounded on aicbsp_driver_fw_init and its helpers in the
// original driver's SDIO flow module.
package firmware

import (
	"log"
	"time"

	"github.com/sg2002/aic8800/driverr"
	"github.com/sg2002/aic8800/lmac"
)

// sender is the subset of bus.Stack the loader needs: a synchronous
// request/confirm round trip.
type sender interface {
	Request(msg *lmac.Msg, cfmID uint16, out []byte, timeout time.Duration) (int, error)
}

// Load addresses for the AIC8801 WiFi firmware and its patch blob.
const (
	RAMFmacFWAddr      uint32 = 0x00120000
	RAMFmacFWPatchAddr uint32 = 0x00190000
	ChipRevMemAddr     uint32 = 0x40500000
)

const uploadBlockSize = 1024

// ReadMem performs one DBG_MEM_READ_REQ/CFM round trip, returning the
// 32-bit word at memAddr.
func ReadMem(s sender, memAddr uint32, timeout time.Duration) (uint32, error) {
	msg := lmac.MemReadReq(memAddr)
	out := make([]byte, 8)

	n, err := s.Request(msg, lmac.DbgMemReadCfm, out, timeout)
	if err != nil {
		return 0, err
	}

	word, ok := lmac.ParseMemReadCfm(out[:n])
	if !ok {
		return 0, driverr.New("firmware-read-mem", driverr.KindBadMessage)
	}

	return word, nil
}

// WriteMem performs one DBG_MEM_WRITE_REQ/CFM round trip.
func WriteMem(s sender, memAddr, memData uint32, timeout time.Duration) error {
	msg := lmac.MemWriteReq(memAddr, memData)
	_, err := s.Request(msg, lmac.DbgMemWriteCfm, nil, timeout)
	return err
}

// MaskWriteMem performs one DBG_MEM_MASK_WRITE_REQ/CFM round trip.
func MaskWriteMem(s sender, memAddr, memMask, memData uint32, timeout time.Duration) error {
	msg := lmac.MemMaskWriteReq(memAddr, memMask, memData)
	_, err := s.Request(msg, lmac.DbgMemMaskWriteCfm, nil, timeout)
	return err
}

// UploadBlocks writes data to the card starting at memAddr in 1024-byte
// chunks, each a DBG_MEM_BLOCK_WRITE_REQ/CFM round trip with its own
// timeout, logging progress every 32 blocks or at 25/50/75/100%.
func UploadBlocks(s sender, memAddr uint32, data []byte, blockTimeout time.Duration) error {
	totalBlocks := (len(data) + uploadBlockSize - 1) / uploadBlockSize
	log.Printf("firmware: upload start addr=0x%08x len=%d (%d blocks)", memAddr, len(data), totalBlocks)

	addr := memAddr
	off := 0
	blockIndex := 0

	for off < len(data) {
		end := off + uploadBlockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		msg, ok := lmac.MemBlockWriteReq(addr, chunk)
		if !ok {
			return driverr.New("firmware-upload", driverr.KindOutOfMemory)
		}

		if _, err := s.Request(msg, lmac.DbgMemBlockWriteCfm, nil, blockTimeout); err != nil {
			return err
		}

		addr += uint32(len(chunk))
		off = end
		blockIndex++

		pct := (off * 100) / len(data)
		if blockIndex%32 == 0 || pct == 25 || pct == 50 || pct == 75 || off == len(data) {
			log.Printf("firmware: upload progress block %d/%d (%d%% done)", blockIndex, totalBlocks, pct)
		}
	}

	log.Printf("firmware: upload done, %d blocks written", blockIndex)
	return nil
}

// StartApp sends DBG_START_APP_REQ and waits for its confirmation.
func StartApp(s sender, bootAddr uint32, bootType uint32, timeout time.Duration) error {
	log.Printf("firmware: start app addr=0x%08x type=%d", bootAddr, bootType)
	msg := lmac.StartAppReq(bootAddr, bootType)
	_, err := s.Request(msg, lmac.DbgStartAppCfm, nil, timeout)
	return err
}
