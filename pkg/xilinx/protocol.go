package xilinx

import (
	"fmt"

	"github.com/bryceberger/nafa/pkg/jtag"
	"github.com/bryceberger/nafa/pkg/units"
)

// shiftForSLR packs inst (6 bits) into the slot belonging to activeSLR among
// five 6-bit slots, with every other slot holding NOOP (0b100100). Multi-die
// (stacked silicon interposer) parts present one configuration IR per SLR
// concatenated into a single shift; activeSLR selects which slot the real
// instruction lands in. Only the target device's actual IR width is ever
// shifted, so slots beyond its SLR count are simply never clocked out.
func shiftForSLR(activeSLR uint8, inst uint8) uint32 {
	if activeSLR > 4 {
		panic("xilinx: active slr out of range")
	}
	const noops uint32 = 0b100100_100100_100100_100100_100100
	in := uint32(inst&0b111111)
	mask := uint32(0b111111) << (activeSLR * 6)
	return noops&^mask | in<<(activeSLR*6)
}

// bitstreamToWireOrder reverses the bit order of every byte of each word,
// the transform the configuration interface expects between a bitstream's
// natural word order and the order it must ride over TDI.
func bitstreamToWireOrder(words []uint32) []byte {
	out := make([]byte, 0, len(words)*4)
	for _, w := range words {
		be := [4]byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w)}
		for _, b := range be {
			out = append(out, reverseBits(b))
		}
	}
	return out
}

func reverseBits(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// ReadDeviceRegister shifts a SYNC/NOOP/<reg>/NOOP/NOOP configuration
// sequence into target's SLR activeSLR and shifts back reg.WordCount words
// from CFG_OUT.
func ReadDeviceRegister(ctl *jtag.Controller, target int, activeSLR uint8, reg Type1) ([]byte, error) {
	tiny := bitstreamToWireOrder([]uint32{Sync, Noop, reg.ToRaw(), Noop, Noop})

	if err := ctl.ShiftInstruction(target, shiftForSLR(activeSLR, CfgIn)); err != nil {
		return nil, err
	}
	if _, err := ctl.ShiftData(target, jtag.Tx(tiny, units.Bits(len(tiny)*8))); err != nil {
		return nil, err
	}
	if err := ctl.ShiftInstruction(target, shiftForSLR(activeSLR, CfgOut)); err != nil {
		return nil, err
	}
	return ctl.ShiftData(target, jtag.Rx(units.Bytes(uint(reg.WordCount)*4).AsBits()))
}

// ReadDeviceRegisterWord reads one 32-bit configuration register and
// reflects its bits back into natural word order.
func ReadDeviceRegisterWord(ctl *jtag.Controller, target int, activeSLR uint8, addr Addr) (uint32, error) {
	data, err := ReadDeviceRegister(ctl, target, activeSLR, NewType1(OpRead, addr, 1))
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("xilinx: short register read (%d bytes)", len(data))
	}
	b0, b1, b2, b3 := reverseBits(data[0]), reverseBits(data[1]), reverseBits(data[2]), reverseBits(data[3])
	return uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3), nil
}

// ReadJTAGRegister shifts a fixed JTAG instruction and reads back length
// bytes from the resulting DR, used for IDCode/FuseDNA/FuseKey-style
// registers that bypass the configuration packet path entirely.
func ReadJTAGRegister(ctl *jtag.Controller, target int, instr uint8, length units.Bytes) ([]byte, error) {
	if err := ctl.ShiftInstruction(target, uint32(instr)); err != nil {
		return nil, err
	}
	return ctl.ShiftData(target, jtag.Rx(length.AsBits()))
}

// ReadXADC shifts a sequence of DRP commands through the XADC_DRP JTAG
// instruction, idling 10 bytes between each to let the conversion settle.
// The DRP pipeline has one command of read latency: command N's result
// shifts out alongside command N+1, so ReadXADC returns one 4-byte chunk
// per command sent plus one trailing chunk for the last command, len(cmds)+1
// chunks in total. The first chunk is always stale (no command had been
// issued yet) and callers pair chunk i+1 with cmds[i].
func ReadXADC(ctl *jtag.Controller, target int, activeSLR uint8, cmds []DRPCommand) ([]byte, error) {
	if err := ctl.ShiftInstruction(target, shiftForSLR(activeSLR, XadcDRP)); err != nil {
		return nil, err
	}
	var out []byte
	for _, c := range cmds {
		bits := c.ToBits()
		tdi := []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
		chunk, err := ctl.ShiftData(target, jtag.TxRx(tdi, units.Bits(32)))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		if err := ctl.Idle(units.Bytes(10)); err != nil {
			return nil, err
		}
	}
	last, err := ctl.ShiftData(target, jtag.Rx(units.Bits(32)))
	if err != nil {
		return nil, err
	}
	return append(out, last...), nil
}

// Program shifts a full configuration bitstream into target: JShutdown,
// CfgIn, the bitstream itself, then JStart to bring the design live.
func Program(ctl *jtag.Controller, target int, data []byte) error {
	if err := ctl.ShiftInstruction(target, uint32(JShutdown)); err != nil {
		return err
	}
	if err := ctl.ShiftInstruction(target, uint32(CfgIn)); err != nil {
		return err
	}
	if _, err := ctl.ShiftData(target, jtag.Tx(data, units.Bits(len(data)*8))); err != nil {
		return err
	}
	return ctl.ShiftInstruction(target, uint32(JStart))
}

// readbackOverreadWords is an intentionally oversized Type-2 word count.
// The FPGA truncates the FDRO stream the instant DR exits regardless of the
// declared count, and no combination of the true readback length (in bytes,
// words, or bits) produces consistent results across parts; this constant
// and an exact byte count requested from the DR read are what actually
// works.
const readbackOverreadWords = 0xffffff

// Readback reads length bytes of configuration memory back out of target via
// FDRO.
func Readback(ctl *jtag.Controller, target int, length units.Bytes) ([]byte, error) {
	packet := []uint32{
		Sync,
		Noop,
		NewType1(OpWrite, AddrCmd, 1).ToRaw(),
		0x0000_0004, // RCFG
		NewType1(OpWrite, AddrFar, 1).ToRaw(),
		0x0000_0000,
		NewType1(OpRead, AddrFdro, 0).ToRaw(),
		Type2(OpRead, readbackOverreadWords),
		Noop,
		Noop,
	}
	wire := bitstreamToWireOrder(packet)

	if err := ctl.ShiftInstruction(target, uint32(CfgIn)); err != nil {
		return nil, err
	}
	if _, err := ctl.ShiftData(target, jtag.Tx(wire, units.Bits(len(wire)*8))); err != nil {
		return nil, err
	}
	if err := ctl.ShiftInstruction(target, uint32(CfgOut)); err != nil {
		return nil, err
	}
	return ctl.ShiftData(target, jtag.Rx(length.AsBits()))
}
