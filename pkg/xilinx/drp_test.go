package xilinx

import (
	"testing"

	"github.com/bryceberger/nafa/pkg/device"
)

func TestDRPCommandToBitsPacksFields(t *testing.T) {
	c := DRPCommand{Cmd: DRPRead, Addr: DRPVccInt, Data: 0xabcd}
	got := c.ToBits()
	want := uint32(DRPRead)<<26 | uint32(DRPVccInt)<<16 | 0xabcd
	if got != want {
		t.Fatalf("ToBits() = %#x, want %#x", got, want)
	}
}

func TestDRPBitsRawMasksFields(t *testing.T) {
	got := DRPBitsRaw(0xff, 0xffff, 0x1234)
	want := uint32(0x0f)<<26 | uint32(0x3ff)<<16 | 0x1234
	if got != want {
		t.Fatalf("DRPBitsRaw() = %#x, want %#x", got, want)
	}
}

func TestTransferForTemperature7Series(t *testing.T) {
	kind, fns := transferFor(DRPTemperature, device.Family7Series)
	if kind != TransferExactly {
		t.Fatalf("kind = %v, want TransferExactly", kind)
	}
	if len(fns) != 1 {
		t.Fatalf("len(fns) = %d, want 1", len(fns))
	}
}

func TestTransferForTemperatureUltraScalePlusHasMultipleCandidates(t *testing.T) {
	kind, fns := transferFor(DRPTemperature, device.FamilyUltraScalePlus)
	if kind != TransferOneOf {
		t.Fatalf("kind = %v, want TransferOneOf", kind)
	}
	if len(fns) < 2 {
		t.Fatalf("len(fns) = %d, want at least 2", len(fns))
	}
}

func TestTransferForUnknownFamily(t *testing.T) {
	kind, _ := transferFor(DRPTemperature, device.FamilyVersal)
	if kind != TransferUnknown {
		t.Fatalf("kind = %v, want TransferUnknown", kind)
	}
}

func TestTransferForUnmappedAddrIsNone(t *testing.T) {
	kind, fns := transferFor(DRPFlag, device.Family7Series)
	if kind != TransferNone || fns != nil {
		t.Fatalf("kind = %v, fns = %v, want TransferNone/nil", kind, fns)
	}
}

func TestConvertAppliesKnownTransfer(t *testing.T) {
	value, ok := Convert(DRPTemperature, device.Family7Series, 0)
	if !ok {
		t.Fatalf("Convert reported ok=false for a known transfer")
	}
	if value != -273 {
		t.Fatalf("Convert(DRPTemperature, Family7Series, 0) = %v, want -273", value)
	}
}

func TestConvertUnknownFamilyIsNotOK(t *testing.T) {
	if _, ok := Convert(DRPTemperature, device.FamilyVersal, 0); ok {
		t.Fatalf("Convert reported ok=true for an uncharacterized family")
	}
}

func TestConvertUnmappedAddrIsNotOK(t *testing.T) {
	if _, ok := Convert(DRPFlag, device.Family7Series, 0); ok {
		t.Fatalf("Convert reported ok=true for an unconvertible register")
	}
}

func TestTemperatureS7AtZero(t *testing.T) {
	got := temperatureS7(0)
	if got != -273 {
		t.Fatalf("temperatureS7(0) = %v, want -273", got)
	}
}

func TestLinearScale12MatchesFormula(t *testing.T) {
	got := linearScale12(0x1000, -273, 0.123)
	want := float32(0x1000>>4)*0.123 + -273
	if got != want {
		t.Fatalf("linearScale12 = %v, want %v", got, want)
	}
}

func TestLinearScale10SignedHandlesNegative(t *testing.T) {
	// A top-bit-set 16-bit pattern arithmetic-shifted right should produce a
	// negative intermediate value, pulling the result below base.
	got := linearScale10Signed(0x8000, 0, 1.0)
	if got >= 0 {
		t.Fatalf("linearScale10Signed(0x8000, ...) = %v, want negative", got)
	}
}
