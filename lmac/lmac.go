// Package lmac implements the wire framing for the firmware's LMAC
// debug-task protocol: message IDs, the AIC8801/DC-D80 request
// encodings, and the two receive-side frame shapes BusStack's RX
// worker demultiplexes (config frames destined for the CommandManager,
// and raw data frames), grounded on the AIC8801 bus-prefix framing and
// LmacMsg header layout.
package lmac

import "encoding/binary"

// Task identifiers.
const (
	TaskDbg    uint16 = 1
	DrvTaskID  uint16 = 100
)

// Message IDs used by this driver.
const (
	DbgMemReadReq        uint16 = 1024
	DbgMemReadCfm        uint16 = 1025
	DbgMemWriteReq       uint16 = 1026
	DbgMemWriteCfm       uint16 = 1027
	DbgMemBlockWriteReq  uint16 = 1034
	DbgMemBlockWriteCfm  uint16 = 1035
	DbgStartAppReq       uint16 = 1036
	DbgStartAppCfm       uint16 = 1037
	DbgMemMaskWriteReq   uint16 = 1038
	DbgMemMaskWriteCfm   uint16 = 1039
)

// BootTypeAuto is the only boot type this driver sends.
const BootTypeAuto uint32 = 1

// maxBlockPayload is the upload chunk size the firmware loader writes per
// DBG_MEM_BLOCK_WRITE_REQ. The resulting param (mem_addr + len + up to 1024
// bytes of data) tops out at 1032 bytes; framed and padded for AIC8801 that
// is exactly 1536 bytes, filling the pending_cmd_tx slot.
const maxBlockPayload = 1024

// Msg is one outbound LMAC request, prior to bus-specific framing.
type Msg struct {
	ID      uint16
	DestID  uint16
	SrcID   uint16
	Param   []byte
}

// Encode serializes m for the wire. AIC8801 prepends an 8-byte bus
// prefix ([len+4 LE u16][0x11][0x00][4 zero bytes]) ahead of the 8-byte
// LMAC header; DC/D80 send the 8-byte header directly.
func (m *Msg) Encode(aic8801 bool) []byte {
	paramLen := len(m.Param)

	if !aic8801 {
		buf := make([]byte, 8+paramLen)
		binary.LittleEndian.PutUint16(buf[0:2], m.ID)
		binary.LittleEndian.PutUint16(buf[2:4], m.DestID)
		binary.LittleEndian.PutUint16(buf[4:6], m.SrcID)
		binary.LittleEndian.PutUint16(buf[6:8], uint16(paramLen))
		copy(buf[8:], m.Param)
		return buf
	}

	buf := make([]byte, 16+paramLen)

	payloadLen := uint32(8 + paramLen)
	lenPlus4 := payloadLen + 4
	buf[0] = byte(lenPlus4)
	buf[1] = byte(lenPlus4>>8) & 0x0F
	buf[2] = 0x11
	buf[3] = 0x00
	// buf[4:8] is the zero dummy word.

	binary.LittleEndian.PutUint16(buf[8:10], m.ID)
	binary.LittleEndian.PutUint16(buf[10:12], m.DestID)
	binary.LittleEndian.PutUint16(buf[12:14], m.SrcID)
	binary.LittleEndian.PutUint16(buf[14:16], uint16(paramLen))
	copy(buf[16:], m.Param)

	return buf
}

// newDbgMsg builds a DBG-task message addressed from the driver to the
// firmware.
func newDbgMsg(id uint16, param []byte) *Msg {
	return &Msg{ID: id, DestID: TaskDbg, SrcID: DrvTaskID, Param: param}
}

// MemReadReq builds a DBG_MEM_READ_REQ for memAddr.
func MemReadReq(memAddr uint32) *Msg {
	param := make([]byte, 4)
	binary.LittleEndian.PutUint32(param, memAddr)
	return newDbgMsg(DbgMemReadReq, param)
}

// ParseMemReadCfm extracts memdata from a DBG_MEM_READ_CFM param.
func ParseMemReadCfm(param []byte) (uint32, bool) {
	if len(param) < 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(param[4:8]), true
}

// MemWriteReq builds a DBG_MEM_WRITE_REQ writing memData to memAddr.
func MemWriteReq(memAddr, memData uint32) *Msg {
	param := make([]byte, 8)
	binary.LittleEndian.PutUint32(param[0:4], memAddr)
	binary.LittleEndian.PutUint32(param[4:8], memData)
	return newDbgMsg(DbgMemWriteReq, param)
}

// MemMaskWriteReq builds a DBG_MEM_MASK_WRITE_REQ.
func MemMaskWriteReq(memAddr, memMask, memData uint32) *Msg {
	param := make([]byte, 12)
	binary.LittleEndian.PutUint32(param[0:4], memAddr)
	binary.LittleEndian.PutUint32(param[4:8], memMask)
	binary.LittleEndian.PutUint32(param[8:12], memData)
	return newDbgMsg(DbgMemMaskWriteReq, param)
}

// MemBlockWriteReq builds a DBG_MEM_BLOCK_WRITE_REQ for one upload
// chunk. It returns (nil, false) if data does not fit the LMAC message's
// parameter budget.
func MemBlockWriteReq(memAddr uint32, data []byte) (*Msg, bool) {
	if len(data) > maxBlockPayload {
		return nil, false
	}

	param := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint32(param[0:4], memAddr)
	binary.LittleEndian.PutUint32(param[4:8], uint32(len(data)))
	copy(param[8:], data)

	return newDbgMsg(DbgMemBlockWriteReq, param), true
}

// StartAppReq builds a DBG_START_APP_REQ.
func StartAppReq(bootAddr uint32, bootType uint32) *Msg {
	param := make([]byte, 8)
	binary.LittleEndian.PutUint32(param[0:4], bootAddr)
	binary.LittleEndian.PutUint32(param[4:8], bootType)
	return newDbgMsg(DbgStartAppReq, param)
}
