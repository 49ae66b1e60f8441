package xilinx

import (
	"testing"

	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/jtag"
)

// singleDeviceController wires a FakeBackend reporting idcode into a
// Controller and runs DetectChain so target 0 has a real IRLen to shift
// against, mirroring every xilinx operation's assumption that chain
// detection has already run. Past the device's 32 IDCODE bits, TDO floats
// high, which ends the chain.
func singleDeviceController(t *testing.T, idcode uint32) (*jtag.Controller, *jtag.FakeBackend) {
	t.Helper()
	fake := jtag.NewFakeBackend(idcode)
	fake.OnShift = func(cycleIndex int, tms, tdi bool) bool {
		if cycleIndex >= 32 {
			return true
		}
		return idcode&(1<<uint(cycleIndex)) != 0
	}
	ctl := jtag.NewController(fake)
	if _, err := ctl.DetectChain(device.NewDatabase()); err != nil {
		t.Fatalf("DetectChain returned error: %v", err)
	}
	fake.Reset()
	return ctl, fake
}

var xcku025IDCode uint32 = 0x03822093
