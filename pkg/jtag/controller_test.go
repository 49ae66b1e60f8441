package jtag

import (
	"testing"

	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/tap"
)

// idcodeDeviceHook simulates a single-device chain whose DR defaults to its
// 32-bit IDCODE (LSB fixed at 1) immediately after a TAP reset, then floats
// TDO high past the last device, the behavior DetectChain relies on to find
// the end of the chain. The cycle count is tracked across Bytes calls rather
// than trusting the cycleIndex argument, which restarts at zero every call.
func idcodeDeviceHook(idcode uint32) ShiftHook {
	total := 0
	return func(cycleIndex int, tms, tdi bool) bool {
		i := total
		total++
		if i < 32 {
			return idcode&(1<<uint(i)) != 0
		}
		return true
	}
}

func TestDetectChainSingleDevice(t *testing.T) {
	const idcode = 0x03822093 // xcku025, masked form lives in the database
	fake := NewFakeBackend(idcode)
	fake.OnShift = idcodeDeviceHook(idcode)

	ctl := NewController(fake)
	db := device.NewDatabase()

	chain, err := ctl.DetectChain(db)
	if err != nil {
		t.Fatalf("DetectChain returned error: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("chain length = %d, want 1", len(chain))
	}
	if device.Masked(chain[0].IDCode) != device.Masked(idcode) {
		t.Fatalf("chain[0].IDCode = %#x, want %#x", chain[0].IDCode, idcode)
	}
	if !chain[0].Known {
		t.Fatalf("chain[0] should be a known device")
	}
	if chain[0].Descriptor.Name != "xcku025" {
		t.Fatalf("chain[0].Descriptor.Name = %q, want xcku025", chain[0].Descriptor.Name)
	}
}

func TestDetectChainEmptyWhenTDOFloatsHigh(t *testing.T) {
	fake := NewFakeBackend(0xffffffff)
	ctl := NewController(fake)
	db := device.NewDatabase()

	chain, err := ctl.DetectChain(db)
	if err != nil {
		t.Fatalf("DetectChain returned error: %v", err)
	}
	if len(chain) != 0 {
		t.Fatalf("chain length = %d, want 0", len(chain))
	}
}

func TestDetectChainRejectsBypass(t *testing.T) {
	fake := NewFakeBackend(0x12345678) // LSB clear: stuck in BYPASS
	ctl := NewController(fake)
	db := device.NewDatabase()

	if _, err := ctl.DetectChain(db); err == nil {
		t.Fatalf("expected error for a device stuck in bypass")
	}
}

func TestShiftInstructionPadsBypass(t *testing.T) {
	fake := NewFakeBackend(0)
	ctl := NewController(fake)
	ctl.chain = []ChainPosition{
		{Index: 0, Descriptor: device.Descriptor{IRLen: 6}},
		{Index: 1, Descriptor: device.Descriptor{IRLen: 12}},
	}
	// Pre-position the tracked TAP state at Shift-IR so the instruction shift
	// below starts at cycle 0, rather than mixing in the transition cycles
	// from Test-Logic-Reset.
	if _, err := ctl.machine.GoTo(tap.StateShiftIR); err != nil {
		t.Fatalf("GoTo returned error: %v", err)
	}

	if err := ctl.ShiftInstruction(0, 0x09); err != nil {
		t.Fatalf("ShiftInstruction returned error: %v", err)
	}

	// 6 bits for device 0 (0x09) + 12 bits of all-ones BYPASS for device 1,
	// followed by the Exit1-IR/Update-IR/Run-Test-Idle transition cycles.
	if len(fake.Cycles) < 18 {
		t.Fatalf("recorded cycles = %d, want at least 18", len(fake.Cycles))
	}
	for i := 0; i < 6; i++ {
		want := 0x09&(1<<uint(i)) != 0
		if fake.Cycles[i].TDI != want {
			t.Fatalf("device0 IR bit %d = %v, want %v", i, fake.Cycles[i].TDI, want)
		}
	}
	for i := 6; i < 18; i++ {
		if !fake.Cycles[i].TDI {
			t.Fatalf("bypass IR bit %d = false, want true (all-ones BYPASS)", i)
		}
	}
}
