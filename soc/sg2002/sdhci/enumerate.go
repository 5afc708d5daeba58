package sdhci

import (
	"log"

	"github.com/sg2002/aic8800/driverr"
)

// maxOCRRetries bounds the CMD5 voltage-negotiation poll.
const maxOCRRetries = 100

// Card holds the state learned from enumeration: the relative card
// address and the bus width currently in effect.
type Card struct {
	RCA       uint16
	BusWidth4 bool
}

// Enumerate runs CMD0→CMD5→CMD3→CMD7 and returns the card's RCA.
func (hw *Controller) Enumerate() (*Card, error) {
	if err := hw.cmdGoIdle(); err != nil {
		return nil, err
	}

	ocr, err := hw.cmdSendOCR(0)
	if err != nil {
		return nil, err
	}
	if ocr == 0 {
		return nil, driverr.New("enumerate", driverr.KindNoDevice)
	}

	if err := hw.negotiateVoltage(ocr); err != nil {
		return nil, err
	}

	rca, err := hw.cmdSendRelativeAddr()
	if err != nil {
		return nil, err
	}

	if err := hw.cmdSelectCard(rca); err != nil {
		return nil, err
	}

	log.Printf("sdhci: card enumerated, rca=0x%04x", rca)

	return &Card{RCA: rca}, nil
}

// cmdGoIdle issues CMD0, which carries no response.
func (hw *Controller) cmdGoIdle() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.sendCommand(0, respNone, false, 0); err != nil {
		return err
	}

	hw.clearInterrupts(CmdMask)
	return nil
}

// cmdSendOCR issues CMD5 with the given argument and returns the R4
// response (the OCR value in this case).
func (hw *Controller) cmdSendOCR(arg uint32) (uint32, error) {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.sendCommand(5, resp48, false, arg); err != nil {
		hw.clearInterrupts(CmdMask)
		return 0, err
	}

	resp := hw.response()
	hw.clearInterrupts(CmdMask)
	return resp, nil
}

// negotiateVoltage repeats CMD5 with the card's OCR bits until the
// ready bit (R4 bit 31) is set, or the retry budget is exhausted.
func (hw *Controller) negotiateVoltage(ocr uint32) error {
	arg := ocr & 0x00FFFF00

	for i := 0; i < maxOCRRetries; i++ {
		resp, err := hw.cmdSendOCR(arg)
		if err != nil {
			return err
		}

		if resp&(1<<31) != 0 {
			return nil
		}
	}

	return driverr.New("enumerate", driverr.KindTimeout)
}

// cmdSendRelativeAddr issues CMD3 and extracts the RCA from the upper
// 16 bits of the R6 response.
func (hw *Controller) cmdSendRelativeAddr() (uint16, error) {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.sendCommand(3, resp48, false, 0); err != nil {
		hw.clearInterrupts(CmdMask)
		return 0, err
	}

	resp := hw.response()
	hw.clearInterrupts(CmdMask)

	return uint16(resp >> 16), nil
}

// cmdSelectCard issues CMD7 with rca and waits for the card to release
// DAT0.
func (hw *Controller) cmdSelectCard(rca uint16) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.sendCommand(7, resp48Busy, false, uint32(rca)<<16); err != nil {
		hw.clearInterrupts(CmdMask)
		return err
	}

	hw.clearInterrupts(CmdMask)

	return hw.waitNotInhibit(true)
}
