// Package xpc implements the Backend interface for the legacy Xilinx
// Platform Cable USB-II dongle (EZ-USB FX2 based, VID:PID 0x03FD:0x0008),
// shifting bits one at a time through a nibble-packed bulk transfer format
// rather than the byte-oriented MPSSE opcodes the FTDI backend uses.
package xpc

import (
	"fmt"

	"github.com/google/gousb"

	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/jtag"
	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

const (
	xpcuCtrlLoadFirm = 0xA0
	ezusbCPUCS       = 0xE600
	cpuReset         = 1
)

const xpcProg = 1 << 3

// maxBufLen is the nibble-packed buffer size at which a shift is
// automatically flushed to the cable.
const maxBufLen = 8192

// Backend drives a Xilinx Platform Cable over gousb. Every cycle shifted is
// packed four-per-byte-pair into cmdBuf:
//
//	buf[0]: ssss iiii
//	buf[1]: oooo 1111
//	buf[2]: ssss iiii
//	buf[3]: oooo 1111
//
// s = TMS, i = TDI, o = sample TDO, the low nibble of the second byte is
// always 1111 in firmware traces and is otherwise unexplained (likely a
// fixed TCK enable). Data is sent LSB-first within each nibble pair.
type Backend struct {
	dev  *gousb.Device
	intf *gousb.Interface
	ctx  *gousb.Context

	epIn  *gousb.InEndpoint
	epOut *gousb.OutEndpoint

	cmdBuf     []byte
	cmdReadLen int
	numBits    uint8
	lastTDI    *bool
	lastTDO    *bool

	FirmwareVersion uint16
	CPLDVersion     uint16
}

// FirmwareChunk is one relocatable block of EZ-USB firmware, loaded at Addr
// by Flash before the cable is usable. Cables that enumerate pre-programmed
// never need this; cold-plugged FX2 silicon does.
type FirmwareChunk struct {
	Addr uint16
	Data []byte
}

// Flash loads EZ-USB firmware into a freshly enumerated, unprogrammed
// Platform Cable. A host loader must hold the FX2's CPU in reset, load the
// firmware image through the Firmware Download vendor command, then release
// reset; 0xE600 is the only EZ-USB register writable that way.
func Flash(dev *gousb.Device, firmware []FirmwareChunk) error {
	cfg, err := dev.Config(1)
	if err != nil {
		return fmt.Errorf("xpc: flash: get config: %w", err)
	}
	if _, err := cfg.Interface(0, 0); err != nil {
		return fmt.Errorf("xpc: flash: claim interface: %w", err)
	}

	if _, err := dev.Control(0x40, xpcuCtrlLoadFirm, ezusbCPUCS, 0, []byte{cpuReset}); err != nil {
		return fmt.Errorf("xpc: flash: assert cpu reset: %w", err)
	}

	for _, chunk := range firmware {
		addr := chunk.Addr
		data := chunk.Data
		for len(data) > 0 {
			n := len(data)
			if n > 64 {
				n = 64
			}
			if _, err := dev.Control(0x40, xpcuCtrlLoadFirm, addr, 0, data[:n]); err != nil {
				return fmt.Errorf("xpc: flash: write at 0x%04x: %w", addr, err)
			}
			addr += uint16(n)
			data = data[n:]
		}
	}

	if _, err := dev.Control(0x40, xpcuCtrlLoadFirm, ezusbCPUCS, 0, []byte{0}); err != nil {
		return fmt.Errorf("xpc: flash: release cpu reset: %w", err)
	}
	return nil
}

// Open claims the Platform Cable's CPLD interface, runs its documented
// power-on handshake (mode-28 requests, GPIO program-pin drive, output
// enable, a two-bit warm-up shift), and returns a Backend ready to issue
// TAP transitions.
func Open(cable device.Cable) (*Backend, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(cable.VID), gousb.ID(cable.PID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("xpc: open device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("xpc: device not found (VID:0x%04X PID:0x%04X)", cable.VID, cable.PID)
	}
	_ = dev.SetAutoDetach(true)

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("xpc: get config: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("xpc: claim interface: %w", err)
	}
	epOut, err := intf.OutEndpoint(2)
	if err != nil {
		intf.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("xpc: bulk out endpoint: %w", err)
	}
	epIn, err := intf.InEndpoint(6)
	if err != nil {
		intf.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("xpc: bulk in endpoint: %w", err)
	}

	b := &Backend{dev: dev, intf: intf, ctx: ctx, epIn: epIn, epOut: epOut}

	if err := b.request28(0x11); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.writeGPIO(xpcProg); err != nil {
		b.Close()
		return nil, err
	}

	fwVer, err := b.readFirmwareVersion()
	if err != nil {
		b.Close()
		return nil, err
	}
	cpldVer, err := b.readCPLDVersion()
	if err != nil {
		b.Close()
		return nil, err
	}
	b.FirmwareVersion = fwVer
	b.CPLDVersion = cpldVer

	if err := b.request28(0x11); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.outputEnable(true); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.shift(0xa6, 2, []byte{0x00, 0x00}, nil); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.request28(0x12); err != nil {
		b.Close()
		return nil, err
	}

	return b, nil
}

// Close releases the USB resources backing this Backend.
func (b *Backend) Close() error {
	if b.intf != nil {
		b.intf.Close()
	}
	if b.dev != nil {
		b.dev.Close()
	}
	if b.ctx != nil {
		b.ctx.Close()
	}
	return nil
}

func (b *Backend) controlOut(value, index uint16, data []byte) error {
	n, err := b.dev.Control(0x40, 0xb0, value, index, data)
	if err != nil {
		return fmt.Errorf("xpc: control write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("xpc: short control write (%d of %d bytes)", n, len(data))
	}
	return nil
}

func (b *Backend) controlIn(value, index uint16, data []byte) error {
	n, err := b.dev.Control(0xc0, 0xb0, value, index, data)
	if err != nil {
		return fmt.Errorf("xpc: control read: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("xpc: short control read (%d of %d bytes)", n, len(data))
	}
	return nil
}

func (b *Backend) request28(value uint16) error {
	return b.controlOut(0x0028, value, nil)
}

func (b *Backend) writeGPIO(bits uint16) error {
	return b.controlOut(0x0030, bits, nil)
}

func (b *Backend) readFirmwareVersion() (uint16, error) {
	var out [2]byte
	if err := b.controlIn(0x0050, 0x0000, out[:]); err != nil {
		return 0, err
	}
	return uint16(out[0]) | uint16(out[1])<<8, nil
}

func (b *Backend) readCPLDVersion() (uint16, error) {
	var out [2]byte
	if err := b.controlIn(0x0050, 0x0001, out[:]); err != nil {
		return 0, err
	}
	return uint16(out[0]) | uint16(out[1])<<8, nil
}

func (b *Backend) outputEnable(enable bool) error {
	value := uint16(0x10)
	if enable {
		value = 0x18
	}
	return b.controlOut(value, 0, nil)
}

// shift submits the nibble-packed cmdBuf over the bulk OUT endpoint,
// announcing the bit count via a vendor control transfer first, and reads
// back outBuf over the bulk IN endpoint if the caller wants data back.
func (b *Backend) shift(reqno, bits uint16, inBuf []byte, outBuf []byte) error {
	if err := b.controlOut(reqno, bits, nil); err != nil {
		return err
	}
	n, err := b.epOut.Write(inBuf)
	if err != nil {
		return fmt.Errorf("xpc: bulk write: %w", err)
	}
	if n != len(inBuf) {
		return fmt.Errorf("xpc: short bulk write (%d of %d bytes)", n, len(inBuf))
	}
	if outBuf != nil {
		if err := readAll(b.epIn, outBuf); err != nil {
			return fmt.Errorf("xpc: bulk read: %w", err)
		}
	}
	return nil
}

func readAll(ep *gousb.InEndpoint, out []byte) error {
	for read := 0; read < len(out); {
		n, err := ep.Read(out[read:])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("xpc: short read (got %d of %d bytes)", read, len(out))
		}
		read += n
	}
	return nil
}

func (b *Backend) addBit(tms, tdi, tdo bool) {
	b.addBitInternal(tms, tdi, tdo, true)
}

func (b *Backend) addBitInternal(tms, tdi, tdo, tck bool) {
	if b.numBits == 0 {
		b.cmdBuf = append(b.cmdBuf, 0, 0)
	}
	idx := len(b.cmdBuf) - 2
	if tms {
		b.cmdBuf[idx] |= 1 << (b.numBits + 4)
	}
	if tdi {
		b.cmdBuf[idx] |= 1 << b.numBits
	}
	if tdo {
		b.cmdBuf[idx+1] |= 1 << (b.numBits + 4)
	}
	if tck {
		b.cmdBuf[idx+1] |= 1 << b.numBits
	}
	b.numBits = (b.numBits + 1) & 3
}

func (b *Backend) maybeFlush(buf jtag.Buffer) error {
	if len(b.cmdBuf) >= maxBufLen {
		_, err := b.Flush(buf)
		return err
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }

// TMS clocks path.TMS one bit per cycle. The first cycle carries the TDI and
// TDO-sample bits a preceding data shift deferred onto it (see Bytes), or
// false/false when nothing is pending; every later cycle drives TDI high and
// samples nothing.
func (b *Backend) TMS(buf jtag.Buffer, path tap.Path) error {
	lastTDI, lastTDO := false, false
	if b.lastTDI != nil {
		lastTDI = *b.lastTDI
	}
	if b.lastTDO != nil {
		lastTDO = *b.lastTDO
	}
	b.lastTDI = nil
	b.lastTDO = nil

	for i, tms := range path.TMS {
		if i == 0 {
			b.addBit(tms, lastTDI, lastTDO)
		} else {
			b.addBit(tms, true, false)
		}
	}
	return b.maybeFlush(buf)
}

func (b *Backend) bitAt(data jtag.Data, i int) bool {
	switch data.Kind {
	case jtag.DataConstantTx:
		return data.Constant
	case jtag.DataRx:
		return false
	default:
		return data.TDI[i/8]&(1<<uint(i%8)) != 0
	}
}

// Bytes shifts data one bit per cycle with TMS held low, deferring the
// final bit onto the next TMS call when after is non-nil so that bit can
// ride alongside the Shift-Exit1 transition in the same cycle.
func (b *Backend) Bytes(buf jtag.Buffer, before *tap.Path, data jtag.Data, after *tap.Path) error {
	if err := data.Validate(); err != nil {
		return err
	}
	if before != nil {
		if err := b.TMS(buf, *before); err != nil {
			return err
		}
	}

	n := int(data.Len)
	read := data.Kind == jtag.DataRx || data.Kind == jtag.DataTxRx

	for i := 0; i < n; i++ {
		tdi := b.bitAt(data, i)
		if i == n-1 && after != nil {
			b.lastTDI = boolPtr(tdi)
			b.lastTDO = boolPtr(read)
		} else {
			b.addBit(false, tdi, read)
		}
		if read {
			b.cmdReadLen++
		}
		if err := b.maybeFlush(buf); err != nil {
			return err
		}
	}

	if after != nil {
		if err := b.TMS(buf, *after); err != nil {
			return err
		}
	}
	return b.maybeFlush(buf)
}

// Bits shifts the low length bits of data one bit per cycle, deferring the
// final bit the same way Bytes does when after is non-nil.
func (b *Backend) Bits(buf jtag.Buffer, before *tap.Path, data uint32, length units.Bits, after *tap.Path) error {
	if before != nil {
		if err := b.TMS(buf, *before); err != nil {
			return err
		}
	}

	n := int(length)
	if after != nil {
		n--
	}
	for i := 0; i < n; i++ {
		b.addBit(false, data&(1<<uint(i)) != 0, false)
	}
	if after != nil {
		b.lastTDI = boolPtr(data&(1<<uint(n)) != 0)
		b.lastTDO = boolPtr(false)
	}

	if after != nil {
		if err := b.TMS(buf, *after); err != nil {
			return err
		}
	}
	return b.maybeFlush(buf)
}

// Flush submits cmdBuf to the cable and returns whatever TDO bits were
// requested. When nothing is queued or the last nibble pair is full, it first
// appends a new pair holding one all-zero, non-clocking bit.
func (b *Backend) Flush(buf jtag.Buffer) ([]byte, error) {
	if b.numBits == 0 {
		b.addBitInternal(false, false, false, false)
	}

	var out []byte
	if b.cmdReadLen > 0 {
		out = buf.Extend(b.cmdReadLen)
	}

	extraBits := 4
	if b.numBits != 0 {
		extraBits = int(b.numBits)
	}
	inBits := uint16((len(b.cmdBuf)-2)/2*4 + extraBits)

	if err := b.shift(0xa6, inBits, b.cmdBuf, out); err != nil {
		return nil, err
	}

	b.cmdBuf = b.cmdBuf[:0]
	b.cmdReadLen = 0
	b.numBits = 0
	b.lastTDI = nil
	b.lastTDO = nil

	return out, nil
}
