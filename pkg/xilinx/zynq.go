package xilinx

import (
	"fmt"

	"github.com/bryceberger/nafa/pkg/jtag"
	"github.com/bryceberger/nafa/pkg/units"
)

// ZynqReadXADC is ReadXADC's Zynq 7000 counterpart: the XADC_DRP instruction
// is duplicated into both halves of the combined IR instead of packed into
// one SLR's shiftForSLR slot, but the DRP pipeline's one-command read
// latency works the same way.
func ZynqReadXADC(ctl *jtag.Controller, target int, cmds []DRPCommand) ([]byte, error) {
	if err := ctl.ShiftInstruction(target, zynqDuplicate(XadcDRP)); err != nil {
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

// zynqDuplicate builds the 12-bit instruction a Zynq 7000's combined
// PS+PL TAP expects for a 6-bit configuration-logic opcode. A Zynq die
// presents the processing system and the FPGA fabric as a single device
// with a 12-bit IR, as though two 6-bit devices were glued together. Sending
// a NOOP to one half and the real opcode to the other produces garbled
// reads; duplicating the opcode into both halves is the form that has been
// observed to work for every opcode tried so far.
func zynqDuplicate(cmd uint8) uint32 {
	c := uint32(cmd & 0b111111)
	return c<<6 | c
}

// ZynqReadDeviceRegister is ReadDeviceRegister's Zynq 7000 counterpart: same
// SYNC/NOOP/<reg>/NOOP/NOOP sequence, but every JTAG instruction is
// duplicated into both halves of the 12-bit combined IR rather than packed
// per-SLR (Zynq 7000 parts are never stacked-silicon-interposer devices).
func ZynqReadDeviceRegister(ctl *jtag.Controller, target int, reg Type1) ([]byte, error) {
	tiny := bitstreamToWireOrder([]uint32{Sync, Noop, reg.ToRaw(), Noop, Noop})

	if err := ctl.ShiftInstruction(target, zynqDuplicate(CfgIn)); err != nil {
		return nil, err
	}
	if _, err := ctl.ShiftData(target, jtag.Tx(tiny, units.Bits(len(tiny)*8))); err != nil {
		return nil, err
	}
	if err := ctl.ShiftInstruction(target, zynqDuplicate(CfgOut)); err != nil {
		return nil, err
	}
	return ctl.ShiftData(target, jtag.Rx(units.Bytes(uint(reg.WordCount)*4).AsBits()))
}

// ZynqReadDeviceRegisterWord reads one 32-bit configuration register from a
// Zynq 7000 device and reflects its bits back into natural word order.
func ZynqReadDeviceRegisterWord(ctl *jtag.Controller, target int, addr Addr) (uint32, error) {
	data, err := ZynqReadDeviceRegister(ctl, target, NewType1(OpRead, addr, 1))
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("xilinx: short register read (%d bytes)", len(data))
	}
	b0, b1, b2, b3 := reverseBits(data[0]), reverseBits(data[1]), reverseBits(data[2]), reverseBits(data[3])
	return uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3), nil
}

// ZynqReadJTAGRegister shifts a fixed JTAG instruction (duplicated into both
// IR halves) and reads back length bytes from the resulting DR, used for
// IDCODE/USERCODE/fuse-style registers that bypass the configuration packet
// path entirely.
func ZynqReadJTAGRegister(ctl *jtag.Controller, target int, instr uint8, length units.Bytes) ([]byte, error) {
	if err := ctl.ShiftInstruction(target, zynqDuplicate(instr)); err != nil {
		return nil, err
	}
	return ctl.ShiftData(target, jtag.Rx(length.AsBits()))
}

// ReadZynqRegisters is ReadRegisters' Zynq 7000 counterpart. A Zynq die is
// never a stacked-silicon-interposer part, so there is exactly one SLR and
// every register read goes through the duplicated-instruction path instead
// of shiftForSLR.
func ReadZynqRegisters(ctl *jtag.Controller, target int) (RegistersPerSLR, error) {
	read := func(addr Addr) (uint32, error) {
		return ZynqReadDeviceRegisterWord(ctl, target, addr)
	}

	var r RegistersPerSLR
	var err error
	if r.Ctl0, err = read(AddrCtl0); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Stat, err = read(AddrStat); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Cor0, err = read(AddrCor0); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.IDCode, err = read(AddrIdcode); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Axss, err = read(AddrAxss); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Cor1, err = read(AddrCor1); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Wbstar, err = read(AddrWbstar); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Timer, err = read(AddrTimer); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Bootsts, err = read(AddrBootsts); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Ctl1, err = read(AddrCtl1); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Bspi, err = read(AddrBspi); err != nil {
		return RegistersPerSLR{}, err
	}
	return r, nil
}
