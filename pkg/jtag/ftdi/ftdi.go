// Package ftdi implements the Backend interface for FT2232H-class FTDI USB
// chips running in MPSSE (Multi-Protocol Synchronous Serial Engine) mode,
// the transport used by the majority of third-party Xilinx-compatible JTAG
// cables (Digilent, Olimex, Amontec, Bus Blaster, and similar).
package ftdi

import (
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/jtag"
	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

// MPSSE flag bits, set in the command byte preceding a clock-data opcode.
const (
	flagWriteNeg = 0x01 // write TDI/DO on the falling TCK edge
	flagBitMode  = 0x02 // operate on individual bits, not whole bytes
	flagReadNeg  = 0x04 // sample TDO/DI on the falling TCK edge
	flagLSB      = 0x08 // shift LSB first
	flagDoWrite  = 0x10 // this command writes TDI/DO
	flagDoRead   = 0x20 // this command reads TDO/DI
	flagWriteTMS = 0x40 // this command drives TMS/CS, bit7 of the data byte is TDI
)

// MPSSE opcodes outside the clock-data family, used for link setup.
const (
	opSetDataBitsLow  = 0x80
	opSetDataBitsHigh = 0x82
	opSetClockDivisor = 0x86
	opDisableDivBy5   = 0x8A
	opDisable3Phase   = 0x8D
	opSendImmediate   = 0x87
)

// maxReadWriteLen is the largest byte count one MPSSE clock-data opcode can
// carry; longer shifts are split across multiple opcodes within one flush.
const maxReadWriteLen = 1 << 16

// Backend drives an FTDI MPSSE cable over gousb, batching TAP transitions
// and data shifts into one command buffer per Flush.
type Backend struct {
	dev  *gousb.Device
	intf *gousb.Interface
	ctx  *gousb.Context

	epIn  *gousb.InEndpoint
	epOut *gousb.OutEndpoint

	cmdBuf     []byte
	cmdReadLen int
}

// Open claims the given FTDI cable's MPSSE interface and applies its GPIO
// init burst, following the claim/detach/endpoint-discovery pattern used
// elsewhere in this module for USB transports.
func Open(cable device.Cable) (*Backend, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(cable.VID), gousb.ID(cable.PID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("ftdi: open device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("ftdi: device not found (VID:0x%04X PID:0x%04X)", cable.VID, cable.PID)
	}
	_ = dev.SetAutoDetach(true)

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: get config: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: claim interface: %w", err)
	}

	var epOut *gousb.OutEndpoint
	var epIn *gousb.InEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionOut && epOut == nil {
			epOut, err = intf.OutEndpoint(ep.Number)
		}
		if ep.Direction == gousb.EndpointDirectionIn && epIn == nil {
			epIn, err = intf.InEndpoint(ep.Number)
		}
	}
	if err != nil || epOut == nil || epIn == nil {
		intf.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: bulk endpoints not found: %w", err)
	}

	b := &Backend{dev: dev, intf: intf, ctx: ctx, epIn: epIn, epOut: epOut}

	init := []byte{opDisableDivBy5, opDisable3Phase}
	if cable.ClockHz > 0 {
		// With divide-by-5 off the base clock is 60 MHz and
		// TCK = 60 MHz / ((1 + divisor) * 2).
		div := 30_000_000/cable.ClockHz - 1
		if div < 0 {
			div = 0
		}
		init = append(init, opSetClockDivisor, byte(div), byte(div>>8))
	}
	if cable.HasGPIOInit {
		init = append(init,
			opSetDataBitsLow, cable.ADBUSValue, cable.ADBUSMask,
			opSetDataBitsHigh, 0x00, 0x00,
		)
	}
	if _, err := b.epOut.Write(init); err != nil {
		b.Close()
		return nil, fmt.Errorf("ftdi: mpsse init: %w", err)
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

func (b *Backend) maybeFlush(buf jtag.Buffer) error {
	if len(b.cmdBuf) >= maxReadWriteLen || b.cmdReadLen >= maxReadWriteLen {
		_, err := b.Flush(buf)
		return err
	}
	return nil
}

// packTMSLow packs up to 7 TMS bits LSB-first into the low 7 bits of a byte,
// the layout the MPSSE "clock TMS bits" opcode expects.
func packTMSLow(bits []bool) byte {
	var out byte
	for i, bit := range bits {
		if i >= 7 {
			break
		}
		if bit {
			out |= 1 << uint(i)
		}
	}
	return out
}

// tmsInternal emits one MPSSE TMS-bitmode command. path must be at most 7
// bits, an invariant the TAP router upholds since no two of the 16 states
// are more than a handful of transitions apart.
func (b *Backend) tmsInternal(buf jtag.Buffer, path tap.Path, tdi bool) error {
	if len(path.TMS) == 0 {
		return nil
	}
	if len(path.TMS) > 7 {
		return fmt.Errorf("ftdi: tms path of %d bits exceeds 7-bit MPSSE limit", len(path.TMS))
	}
	var tdiBit byte
	if tdi {
		tdiBit = 0x80
	}
	b.cmdBuf = append(b.cmdBuf,
		flagWriteTMS|flagLSB|flagBitMode|flagWriteNeg,
		byte(len(path.TMS)-1),
		tdiBit|packTMSLow(path.TMS),
	)
	return b.maybeFlush(buf)
}

func (b *Backend) TMS(buf jtag.Buffer, path tap.Path) error {
	return b.tmsInternal(buf, path, true)
}

func (b *Backend) Bytes(buf jtag.Buffer, before *tap.Path, data jtag.Data, after *tap.Path) error {
	if err := data.Validate(); err != nil {
		return err
	}
	if before != nil {
		if err := b.tmsInternal(buf, *before, true); err != nil {
			return err
		}
	}

	lastBit := true

	switch data.Kind {
	case jtag.DataTx, jtag.DataTxRx:
		read := data.Kind == jtag.DataTxRx
		readCmd := byte(0)
		if read {
			readCmd = flagDoRead | flagReadNeg
		}
		cmd := readCmd | flagDoWrite | flagLSB | flagWriteNeg

		tdi := data.TDI[:units.RequiredBytes(data.Len)]
		var lastByte *byte
		if after != nil {
			n := len(tdi)
			if n > 0 {
				l := tdi[n-1]
				tdi = tdi[:n-1]
				lastByte = &l
			}
		}

		for len(tdi) > 0 {
			chunk := tdi
			if len(chunk) > maxReadWriteLen {
				chunk = chunk[:maxReadWriteLen]
			}
			tdi = tdi[len(chunk):]
			if read {
				b.cmdReadLen += len(chunk)
			}
			n := len(chunk) - 1
			b.cmdBuf = append(b.cmdBuf, cmd, byte(n), byte(n>>8))
			b.cmdBuf = append(b.cmdBuf, chunk...)
			buf.NotifyWrite(len(chunk))
			if err := b.maybeFlush(buf); err != nil {
				return err
			}
		}

		if lastByte != nil {
			b.cmdBuf = append(b.cmdBuf, cmd|flagBitMode, 6, *lastByte)
			if read {
				b.cmdReadLen++
			}
			buf.NotifyWrite(1)
			lastBit = *lastByte&0x80 != 0
		}

	case jtag.DataRx:
		remaining := int(units.RequiredBytes(data.Len))
		for remaining > 0 {
			toAdd := remaining
			if toAdd > maxReadWriteLen {
				toAdd = maxReadWriteLen
			}
			b.cmdReadLen += toAdd
			n := toAdd - 1
			b.cmdBuf = append(b.cmdBuf, flagDoRead|flagLSB|flagReadNeg, byte(n), byte(n>>8))
			remaining -= toAdd
			if err := b.maybeFlush(buf); err != nil {
				return err
			}
		}

	case jtag.DataConstantTx:
		fill := byte(0x00)
		if data.Constant {
			fill = 0xFF
		}
		remaining := int(units.RequiredBytes(data.Len))
		for remaining > 0 {
			toAdd := remaining
			if toAdd > maxReadWriteLen {
				toAdd = maxReadWriteLen
			}
			n := toAdd - 1
			b.cmdBuf = append(b.cmdBuf, flagDoWrite|flagLSB|flagWriteNeg, byte(n), byte(n>>8))
			for i := 0; i < toAdd; i++ {
				b.cmdBuf = append(b.cmdBuf, fill)
			}
			remaining -= toAdd
			if err := b.maybeFlush(buf); err != nil {
				return err
			}
		}
	}

	if after != nil {
		if err := b.tmsInternal(buf, *after, lastBit); err != nil {
			return err
		}
	}

	return b.maybeFlush(buf)
}

func (b *Backend) Bits(buf jtag.Buffer, before *tap.Path, data uint32, length units.Bits, after *tap.Path) error {
	if before != nil {
		if err := b.tmsInternal(buf, *before, true); err != nil {
			return err
		}
	}

	remaining := int(length)
	if after != nil {
		remaining--
	}

	cmd := byte(flagDoWrite | flagLSB | flagWriteNeg | flagBitMode)
	for remaining > 0 {
		added := remaining
		if added > 8 {
			added = 8
		}
		b.cmdBuf = append(b.cmdBuf, cmd, byte(added-1), byte(data))
		data >>= uint(added)
		remaining -= added
	}

	if after != nil {
		if err := b.tmsInternal(buf, *after, data&1 == 1); err != nil {
			return err
		}
	}

	return b.maybeFlush(buf)
}

func (b *Backend) Flush(buf jtag.Buffer) ([]byte, error) {
	b.cmdBuf = append(b.cmdBuf, opSendImmediate)

	out := buf.Extend(b.cmdReadLen)

	if _, err := b.epOut.Write(b.cmdBuf); err != nil {
		return nil, fmt.Errorf("ftdi: usb write: %w", err)
	}
	if b.cmdReadLen > 0 {
		deadline := 2 * time.Second
		if err := readAll(b.epIn, out, deadline); err != nil {
			return nil, fmt.Errorf("ftdi: usb read: %w", err)
		}
	}

	b.cmdBuf = b.cmdBuf[:0]
	b.cmdReadLen = 0
	return out, nil
}

func readAll(ep *gousb.InEndpoint, out []byte, _ time.Duration) error {
	for read := 0; read < len(out); {
		n, err := ep.Read(out[read:])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("ftdi: short read (got %d of %d bytes)", read, len(out))
		}
		read += n
	}
	return nil
}
