package jtag

import (
	"fmt"
	"sync/atomic"

	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

// maxChainDevices bounds how many devices DetectChain will enumerate before
// giving up, matching the before-list/after-list bound spec.md names for
// chain position bookkeeping.
const maxChainDevices = 32

// ChainPosition is one device's place in a detected scan chain: its IDCODE,
// its database descriptor if known, and the IR length used to account for
// BYPASS padding around it.
type ChainPosition struct {
	Index      int
	IDCode     uint32
	Descriptor device.Descriptor
	Known      bool
}

// Controller is the chain-aware command issuer: it owns the TAP state
// machine and a Backend, and turns "shift this instruction/data into device
// N" into the padded, BYPASS-wrapped shifts the physical chain requires.
type Controller struct {
	backend  Backend
	machine  *tap.StateMachine
	chain    []ChainPosition
	progress *atomic.Uint64
}

// NewController wires a Backend into a fresh Controller. The TAP state
// machine starts in Test-Logic-Reset, matching power-up behavior.
func NewController(backend Backend) *Controller {
	return &Controller{
		backend: backend,
		machine: tap.NewStateMachine(),
	}
}

// Chain returns the most recently detected chain.
func (c *Controller) Chain() []ChainPosition {
	out := make([]ChainPosition, len(c.chain))
	copy(out, c.chain)
	return out
}

// Reset drives five TMS=1 cycles to force Test-Logic-Reset, then returns to
// Run-Test-Idle, per the IEEE 1149.1 recommended reset sequence.
func (c *Controller) Reset() error {
	buf := newSliceBuffer(c.notify)
	resetPath := c.machine.Reset()
	if err := c.backend.TMS(buf, resetPath); err != nil {
		return err
	}
	return c.gotoState(buf, tap.StateRunTestIdle)
}

func (c *Controller) gotoState(buf Buffer, target tap.State) error {
	path, err := c.machine.GoTo(target)
	if err != nil {
		return err
	}
	if len(path.TMS) == 0 {
		return nil
	}
	return c.backend.TMS(buf, path)
}

// DetectChain enumerates the scan chain by resetting the TAP and then, for
// the Nth device, entering Shift-DR through Capture-DR and reading N+1 32-bit
// words, of which only the last is new; IEEE 1149.1 guarantees every
// device's default DR is either its 32-bit IDCODE register (LSB fixed at 1)
// or a 1-bit BYPASS register (fixed at 0). A word of 0xFFFFFFFF means TDO has
// floated high past the last device and the chain is fully enumerated; a
// word with its LSB clear means that device is stuck presenting BYPASS, which
// DetectChain cannot recover from and reports as an error. The chain's first
// word is additionally checked against the Zynq UltraScale+ wake-up pattern,
// since that part's processing system presents a placeholder IDCODE until
// its ARM DAP wake-up sequence runs.
func (c *Controller) DetectChain(db *device.Database) ([]ChainPosition, error) {
	if err := c.Reset(); err != nil {
		return nil, fmt.Errorf("jtag: chain reset: %w", err)
	}

	var chain []ChainPosition
	for len(chain) < maxChainDevices {
		raw, err := c.readChainWord(len(chain))
		if err != nil {
			return nil, err
		}

		switch {
		case raw == 0xffff_ffff:
			c.chain = chain
			return chain, nil

		case len(chain) == 0 && device.IsZynqUltraScalePlusWakeup(raw):
			idcode, err := WakeZynqUltraScalePlusARMDAP(c.backend)
			if err != nil {
				return nil, err
			}
			// The wake-up sequence drives its own Test-Logic-Reset and
			// leaves the physical TAP in Run-Test-Idle; resync the tracked
			// state without re-emitting TMS cycles that already happened.
			c.machine.Reset()
			if _, err := c.machine.GoTo(tap.StateRunTestIdle); err != nil {
				return nil, err
			}
			desc, known := db.Lookup(idcode)
			chain = append(chain, ChainPosition{Index: 0, IDCode: idcode, Descriptor: desc, Known: known})

		case raw&1 != 1:
			return nil, fmt.Errorf("jtag: device in bypass detected: idcode %#08x", raw)

		default:
			desc, known := db.Lookup(raw)
			chain = append(chain, ChainPosition{
				Index:      len(chain),
				IDCode:     raw,
				Descriptor: desc,
				Known:      known,
			})
		}
	}
	c.chain = chain
	return chain, nil
}

// readChainWord shifts n+1 32-bit words out of whatever DR is currently
// selected and returns the last one, starting and ending in Run-Test-Idle.
// Capture-DR reloads every device's default DR on each call, so the first n
// words repeat the devices already found.
func (c *Controller) readChainWord(n int) (uint32, error) {
	buf := newSliceBuffer(c.notify)
	if err := c.gotoState(buf, tap.StateShiftDR); err != nil {
		return 0, err
	}

	exitPath, err := peekPath(c.machine, tap.StateRunTestIdle)
	if err != nil {
		return 0, err
	}
	if err := c.backend.Bytes(buf, nil, Rx(units.Bits(32*(n+1))), &exitPath); err != nil {
		return 0, err
	}
	for _, bit := range exitPath.TMS {
		c.machine.Clock(bit)
	}
	if err := c.gotoState(buf, tap.StateRunTestIdle); err != nil {
		return 0, err
	}

	tdo, err := c.backend.Flush(buf)
	if err != nil {
		return 0, err
	}
	want := 4 * (n + 1)
	if len(tdo) < want {
		return 0, fmt.Errorf("jtag: short read during chain detection (%d of %d bytes)", len(tdo), want)
	}
	w := tdo[want-4 : want]
	return uint32(w[0]) | uint32(w[1])<<8 | uint32(w[2])<<16 | uint32(w[3])<<24, nil
}

// Idle clocks length worth of idle cycles while holding Run-Test-Idle,
// letting on-chip logic (e.g. the XADC DRP pipeline) settle between shifts.
// Unlike ShiftData, it never enters Shift-DR, so it carries no per-device
// BYPASS padding: Run-Test-Idle is shared, undifferentiated TAP state across
// every device on the chain.
func (c *Controller) Idle(length units.Bytes) error {
	buf := newSliceBuffer(c.notify)
	if err := c.gotoState(buf, tap.StateRunTestIdle); err != nil {
		return err
	}
	if err := c.backend.Bytes(buf, nil, ConstantTx(false, length.AsBits()), nil); err != nil {
		return err
	}
	_, err := c.backend.Flush(buf)
	return err
}

// peekPath computes the path from m's current state without mutating m, used
// when the caller needs to hand the path to a Backend call that will itself
// advance the TAP as a side effect of performing the shift.
func peekPath(m *tap.StateMachine, target tap.State) (tap.Path, error) {
	return tap.RoutePath(m.State(), target)
}

// ShiftInstruction loads instr (Descriptor.IRLen bits wide) into the device
// at chain position target, padding every other device's instruction
// register with its own all-ones BYPASS opcode. BYPASS is guaranteed by
// IEEE 1149.1 to be the all-ones opcode on every compliant device regardless
// of IR width, so no per-device opcode table is required for padding.
func (c *Controller) ShiftInstruction(target int, instr uint32) error {
	if target < 0 || target >= len(c.chain) {
		return fmt.Errorf("jtag: chain position %d out of range (chain has %d devices)", target, len(c.chain))
	}

	buf := newSliceBuffer(c.notify)
	if err := c.gotoState(buf, tap.StateShiftIR); err != nil {
		return err
	}

	total := 0
	for _, pos := range c.chain {
		total += int(pos.Descriptor.IRLen)
	}
	if total == 0 {
		return fmt.Errorf("jtag: chain has no known IR lengths, cannot pad instruction shift")
	}

	tdi := make([]byte, (total+7)/8)
	bitOff := 0
	// BYPASS/IR bits load LSB-of-chain-first, i.e. the device closest to TDO
	// shifts out first; by convention position 0 is closest to TDO.
	for _, pos := range c.chain {
		width := int(pos.Descriptor.IRLen)
		var val uint32
		if pos.Index == target {
			val = instr
		} else {
			val = (1 << uint(width)) - 1 // all-ones BYPASS
		}
		for i := 0; i < width; i++ {
			if val&(1<<uint(i)) != 0 {
				tdi[bitOff/8] |= 1 << uint(bitOff%8)
			}
			bitOff++
		}
	}

	exitPath, err := peekPath(c.machine, tap.StateUpdateIR)
	if err != nil {
		return err
	}
	if err := c.backend.Bytes(buf, nil, Tx(tdi, units.Bits(total)), &exitPath); err != nil {
		return err
	}
	for _, bit := range exitPath.TMS {
		c.machine.Clock(bit)
	}
	if err := c.gotoState(buf, tap.StateRunTestIdle); err != nil {
		return err
	}
	_, err = c.backend.Flush(buf)
	return err
}

// ShiftData shifts data through the DR currently selected on the device at
// chain position target, sandwiched between one idle BYPASS bit per device
// before and after it in the chain, and returns the bits captured from
// target's DR (trimmed of the surrounding BYPASS padding).
func (c *Controller) ShiftData(target int, data Data) ([]byte, error) {
	if target < 0 || target >= len(c.chain) {
		return nil, fmt.Errorf("jtag: chain position %d out of range (chain has %d devices)", target, len(c.chain))
	}

	before := 0
	after := 0
	for _, pos := range c.chain {
		switch {
		case pos.Index < target:
			before++
		case pos.Index > target:
			after++
		}
	}

	buf := newSliceBuffer(c.notify)
	if err := c.gotoState(buf, tap.StateShiftDR); err != nil {
		return nil, err
	}

	if before > 0 {
		if err := c.backend.Bytes(buf, nil, ConstantTx(false, units.Bits(before)), nil); err != nil {
			return nil, err
		}
	}

	var exitPathPtr *tap.Path
	if after == 0 {
		p, err := peekPath(c.machine, tap.StateUpdateDR)
		if err != nil {
			return nil, err
		}
		exitPathPtr = &p
	}
	if err := c.backend.Bytes(buf, nil, data, exitPathPtr); err != nil {
		return nil, err
	}

	if after > 0 {
		exitPath, err := peekPath(c.machine, tap.StateUpdateDR)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Bytes(buf, nil, ConstantTx(false, units.Bits(after)), &exitPath); err != nil {
			return nil, err
		}
		for _, bit := range exitPath.TMS {
			c.machine.Clock(bit)
		}
	} else if exitPathPtr != nil {
		for _, bit := range exitPathPtr.TMS {
			c.machine.Clock(bit)
		}
	}

	if err := c.gotoState(buf, tap.StateRunTestIdle); err != nil {
		return nil, err
	}

	return c.backend.Flush(buf)
}
