package jtag

import (
	"fmt"

	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

// zynqUSPlusJTAGCtrl is the 16-bit instruction that switches a Zynq
// UltraScale+ PS TAP from presenting its bare IDCODE to exposing the ARM
// debug access port behind it.
const zynqUSPlusJTAGCtrl = uint32(0b100000)<<10 | uint32(0b100100)<<4 | 0b1111

// WakeZynqUltraScalePlusARMDAP runs the bit-level handshake that makes a
// Zynq UltraScale+ processing system present its ARM DAP on the scan chain
// instead of its bare PS IDCODE, and returns the IDCODE that then shifts out
// of DR, which DetectChain enrolls at chain position 0.
//
// DetectChain invokes this the moment a freshly reset chain's first IDCODE
// satisfies device.IsZynqUltraScalePlusWakeup: that IDCODE doesn't belong to
// any real device, it's the PS TAP's pre-wake-up identity, and the rest of
// the chain is inaccessible until this sequence runs. It drives its own
// Test-Logic-Reset and therefore runs against backend directly rather than
// through a Controller, since no chain position bookkeeping is valid yet.
func WakeZynqUltraScalePlusARMDAP(backend Backend) (uint32, error) {
	m := tap.NewStateMachine()
	buf := newSliceBuffer(nil)

	gotoState := func(target tap.State) error {
		path, err := m.GoTo(target)
		if err != nil {
			return err
		}
		if len(path.TMS) == 0 {
			return nil
		}
		return backend.TMS(buf, path)
	}
	peek := func(target tap.State) (tap.Path, error) {
		return tap.RoutePath(m.State(), target)
	}
	clock := func(path tap.Path) {
		for _, bit := range path.TMS {
			m.Clock(bit)
		}
	}

	if err := backend.TMS(buf, m.Reset()); err != nil {
		return 0, err
	}

	if err := gotoState(tap.StateShiftIR); err != nil {
		return 0, err
	}
	sirExit, err := peek(tap.StateRunTestIdle)
	if err != nil {
		return 0, err
	}
	if err := backend.Bits(buf, nil, zynqUSPlusJTAGCtrl, units.Bits(16), &sirExit); err != nil {
		return 0, err
	}
	clock(sirExit)

	ones := ConstantTx(true, units.Bits(32))
	for i := 0; i < 2; i++ {
		if err := gotoState(tap.StateShiftDR); err != nil {
			return 0, err
		}
		sdrToReset, err := peek(tap.StateTestLogicReset)
		if err != nil {
			return 0, err
		}
		if err := backend.Bytes(buf, nil, ones, &sdrToReset); err != nil {
			return 0, err
		}
		clock(sdrToReset)
	}

	if err := gotoState(tap.StateShiftDR); err != nil {
		return 0, err
	}
	sdrToIdle, err := peek(tap.StateRunTestIdle)
	if err != nil {
		return 0, err
	}
	if err := backend.Bytes(buf, nil, Rx(units.Bits(32)), &sdrToIdle); err != nil {
		return 0, err
	}
	clock(sdrToIdle)

	out, err := backend.Flush(buf)
	if err != nil {
		return 0, err
	}
	if len(out) < 4 {
		return 0, fmt.Errorf("jtag: short read during arm dap wake-up")
	}
	idcode := uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16 | uint32(out[3])<<24
	switch {
	case idcode == 0xffff_ffff:
		return 0, fmt.Errorf("jtag: end of chain during arm dap wake-up")
	case idcode&1 != 1:
		return 0, fmt.Errorf("jtag: device still in bypass after arm dap wake-up")
	default:
		return idcode, nil
	}
}
