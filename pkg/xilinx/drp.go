package xilinx

import "github.com/bryceberger/nafa/pkg/device"

// DRPCmd is the 4-bit operation field of an XADC Dynamic Reconfiguration
// Port transaction.
type DRPCmd uint8

const (
	DRPNoop  DRPCmd = 0b00
	DRPRead  DRPCmd = 0b01
	DRPWrite DRPCmd = 0b10
)

// DRPCommand is one XADC DRP transaction: a 4-bit command, 10-bit register
// address, and 16-bit data word.
type DRPCommand struct {
	Cmd  DRPCmd
	Addr DRPAddr
	Data uint16
}

// ToBits packs a DRP command into its 32-bit wire form.
func (c DRPCommand) ToBits() uint32 {
	return DRPBitsRaw(uint8(c.Cmd), uint16(c.Addr), c.Data)
}

// DRPBitsRaw packs the raw command/address/data fields, for callers working
// with register addresses outside DRPAddr's named set.
func DRPBitsRaw(cmd uint8, addr uint16, data uint16) uint32 {
	return (uint32(cmd)&0x0f)<<26 | (uint32(addr)&0x3ff)<<16 | uint32(data)
}

// DRPAddr enumerates the XADC status/control register map. Descriptions
// follow UG480 (7-series); the same addresses carry over to UltraScale and
// UltraScale+ per UG580, with family-specific transfer functions.
type DRPAddr uint16

const (
	DRPTemperature    DRPAddr = 0x00
	DRPVccInt         DRPAddr = 0x01
	DRPVccAux         DRPAddr = 0x02
	DRPVpVn           DRPAddr = 0x03
	DRPVRefP          DRPAddr = 0x04
	DRPVRefN          DRPAddr = 0x05
	DRPVccBram        DRPAddr = 0x06
	DRPSupplyAOffset  DRPAddr = 0x08
	DRPAdcAOffset     DRPAddr = 0x09
	DRPAdcAGain       DRPAddr = 0x0a
	DRPVccPInt        DRPAddr = 0x0d
	DRPVccPAux        DRPAddr = 0x0e
	DRPVccODdr        DRPAddr = 0x0f
	DRPVAuxPVAuxN0    DRPAddr = 0x10
	DRPVAuxPVAuxN1    DRPAddr = 0x11
	DRPVAuxPVAuxN2    DRPAddr = 0x12
	DRPVAuxPVAuxN3    DRPAddr = 0x13
	DRPVAuxPVAuxN4    DRPAddr = 0x14
	DRPVAuxPVAuxN5    DRPAddr = 0x15
	DRPVAuxPVAuxN6    DRPAddr = 0x16
	DRPVAuxPVAuxN7    DRPAddr = 0x17
	DRPVAuxPVAuxN8    DRPAddr = 0x18
	DRPVAuxPVAuxN9    DRPAddr = 0x19
	DRPVAuxPVAuxNA    DRPAddr = 0x1a
	DRPVAuxPVAuxNB    DRPAddr = 0x1b
	DRPVAuxPVAuxNC    DRPAddr = 0x1c
	DRPVAuxPVAuxND    DRPAddr = 0x1d
	DRPVAuxPVAuxNE    DRPAddr = 0x1e
	DRPVAuxPVAuxNF    DRPAddr = 0x1f
	DRPMaxTemp        DRPAddr = 0x20
	DRPMaxVccInt      DRPAddr = 0x21
	DRPMaxVccAux      DRPAddr = 0x22
	DRPMaxVccBram     DRPAddr = 0x23
	DRPMinTemp        DRPAddr = 0x24
	DRPMinVccInt      DRPAddr = 0x25
	DRPMinVccAux      DRPAddr = 0x26
	DRPMinVccBram     DRPAddr = 0x27
	DRPVccPIntMax     DRPAddr = 0x28
	DRPVccPAuxMax     DRPAddr = 0x29
	DRPVccODdrMax     DRPAddr = 0x2a
	DRPVccPIntMin     DRPAddr = 0x2c
	DRPVccPAuxMin     DRPAddr = 0x2d
	DRPVccODdrMin     DRPAddr = 0x2e
	DRPSupplyBOffset  DRPAddr = 0x30
	DRPAdcBOffset     DRPAddr = 0x31
	DRPAdcBGain       DRPAddr = 0x32
	DRPFlag           DRPAddr = 0x3f
)

// Transfer identifies how a DRP register's raw 16-bit reading converts to a
// physical unit: unconvertible, device-dependent-but-uncharacterized, a
// single known function, or one of several candidate functions (the
// silicon's reference-mode strap isn't visible over JTAG, so more than one
// calibration may apply).
type Transfer int

const (
	TransferNone Transfer = iota
	TransferUnknown
	TransferExactly
	TransferOneOf
)

// TransferFunc converts a raw DRP reading to a physical value.
type TransferFunc func(uint16) float32

// XADCValues pulls the per-command 16-bit data words out of a ReadXADC
// response: chunk i+1's low 16 bits is the result for cmds[i], reflecting
// the DRP's one-command read latency. The first chunk is always discarded.
func XADCValues(raw []byte, numCommands int) []uint16 {
	out := make([]uint16, 0, numCommands)
	for i := 0; i < numCommands; i++ {
		off := (i + 1) * 4
		if off+2 > len(raw) {
			break
		}
		out = append(out, uint16(raw[off])|uint16(raw[off+1])<<8)
	}
	return out
}

// Convert applies addr's known transfer function(s) to a raw DRP reading,
// returning the converted value and whether a conversion was available at
// all. When more than one candidate function exists for family (the
// reference-mode strap isn't visible over JTAG), the first candidate is
// used; the other candidates are not reachable through Convert (only the
// unexported transferFor returns them all).
func Convert(addr DRPAddr, family device.Family, raw uint16) (value float32, ok bool) {
	kind, fns := transferFor(addr, family)
	if kind != TransferExactly && kind != TransferOneOf {
		return 0, false
	}
	if len(fns) == 0 {
		return 0, false
	}
	return fns[0](raw), true
}

// transferFor reports which Transfer kind addr uses on family, and the
// candidate conversion functions for TransferExactly/TransferOneOf.
func transferFor(addr DRPAddr, family device.Family) (Transfer, []TransferFunc) {
	switch addr {
	case DRPTemperature, DRPMaxTemp, DRPMinTemp:
		return temperatureTransfer(family)
	case DRPVccInt, DRPVccAux, DRPVRefP, DRPVRefN, DRPVccBram, DRPVccPInt, DRPVccPAux, DRPVccODdr,
		DRPMaxVccInt, DRPMaxVccAux, DRPMinVccInt, DRPMinVccAux, DRPMinVccBram,
		DRPVccPIntMax, DRPVccPAuxMax, DRPVccODdrMax, DRPVccPIntMin, DRPVccPAuxMin, DRPVccODdrMin:
		return powerSupplyTransfer(family)
	case DRPVpVn, DRPVAuxPVAuxN0, DRPVAuxPVAuxN1, DRPVAuxPVAuxN2, DRPVAuxPVAuxN3, DRPVAuxPVAuxN4,
		DRPVAuxPVAuxN5, DRPVAuxPVAuxN6, DRPVAuxPVAuxN7, DRPVAuxPVAuxN8, DRPVAuxPVAuxN9,
		DRPVAuxPVAuxNA, DRPVAuxPVAuxNB, DRPVAuxPVAuxNC, DRPVAuxPVAuxND, DRPVAuxPVAuxNE, DRPVAuxPVAuxNF:
		if family == device.FamilyUltraScale || family == device.FamilyUltraScalePlus {
			return TransferOneOf, []TransferFunc{adcUnipolarUS, adcBipolarUS}
		}
		return TransferOneOf, []TransferFunc{adcUnipolarS7, adcBipolarS7}
	default:
		return TransferNone, nil
	}
}

func temperatureTransfer(family device.Family) (Transfer, []TransferFunc) {
	const two10 = float32(1 << 10)
	switch family {
	case device.Family7Series:
		return TransferExactly, []TransferFunc{temperatureS7}
	case device.FamilyUltraScale:
		return TransferOneOf, []TransferFunc{
			func(d uint16) float32 { return linearScale10(d, -273.8195, 502.9098/two10) },
			func(d uint16) float32 { return linearScale10(d, -273.6777, 501.3743/two10) },
		}
	case device.FamilyUltraScalePlus:
		return TransferOneOf, []TransferFunc{
			func(d uint16) float32 { return linearScale10(d, -273.8195, 502.9098/two10) },
			func(d uint16) float32 { return linearScale10(d, -273.6777, 501.3743/two10) },
			func(d uint16) float32 { return linearScale10(d, -279.4266, 507.5921/two10) },
			func(d uint16) float32 { return linearScale10(d, -280.2309, 509.3141/two10) },
		}
	default:
		return TransferUnknown, nil
	}
}

func powerSupplyTransfer(family device.Family) (Transfer, []TransferFunc) {
	switch family {
	case device.Family7Series:
		return TransferExactly, []TransferFunc{powerSupplyS7}
	case device.FamilyUltraScale, device.FamilyUltraScalePlus:
		return TransferExactly, []TransferFunc{powerSupplyUS}
	default:
		return TransferUnknown, nil
	}
}

func powerSupplyUS(data uint16) float32  { return linearScale10(data, 0, 0.00293) }
func temperatureS7(data uint16) float32  { return linearScale12(data, -273, 0.123) }
func powerSupplyS7(data uint16) float32  { return linearScale12(data, 0, 0.000732) }
func adcUnipolarUS(data uint16) float32  { return linearScale10(data, 0, 1.0/1024) }
func adcBipolarUS(data uint16) float32   { return linearScale10Signed(data, 0, 1.0/1024) }
func adcUnipolarS7(data uint16) float32  { return linearScale12(data, 0, 1.0/4096) }
func adcBipolarS7(data uint16) float32   { return linearScale12Signed(data, 0, 1.0/4096) }

func linearScale10(data uint16, base, step float32) float32 {
	return float32(data>>6)*step + base
}

func linearScale10Signed(data uint16, base, step float32) float32 {
	return float32(int16(data)>>6)*step + base
}

func linearScale12(data uint16, base, step float32) float32 {
	return float32(data>>4)*step + base
}

func linearScale12Signed(data uint16, base, step float32) float32 {
	return float32(int16(data)>>4)*step + base
}
