package sdio

// ReadByte issues a CMD52 byte read at addr within this function.
func (f *Function) ReadByte(addr uint32) (uint8, error) {
	return f.host.CMD52Read(f.n, addr)
}

// WriteByte issues a CMD52 byte write at addr within this function.
func (f *Function) WriteByte(addr uint32, val uint8) error {
	return f.host.CMD52Write(f.n, addr, val)
}

// ReadFIFO drains len(buf) bytes from the function's fixed FIFO address.
// Transfers larger than 512 bytes are issued as consecutive byte-mode
// CMD53s, since the fixed-address FIFO has no block-mode analogue at this
// layer.
func (f *Function) ReadFIFO(addr uint32, buf []byte) error {
	for off := 0; off < len(buf); off += 512 {
		end := off + 512
		if end > len(buf) {
			end = len(buf)
		}

		if err := f.host.CMD53ReadBytes(f.n, addr, buf[off:end]); err != nil {
			return err
		}
	}

	return nil
}

// WriteFIFO pushes len(buf) bytes to the function's fixed FIFO address.
func (f *Function) WriteFIFO(addr uint32, buf []byte) error {
	for off := 0; off < len(buf); off += 512 {
		end := off + 512
		if end > len(buf) {
			end = len(buf)
		}

		if err := f.host.CMD53WriteBytes(f.n, addr, buf[off:end]); err != nil {
			return err
		}
	}

	return nil
}
