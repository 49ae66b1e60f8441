package jtag

import (
	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

// Cycle records one simulated TCK pulse: the TMS bit driven and the TDI/TDO
// bit pair shifted that cycle.
type Cycle struct {
	TMS bool
	TDI bool
	TDO bool
}

// ShiftHook lets a test override the simulator's default echo behavior for a
// single TDI bit, returning the TDO bit the fake device should present.
type ShiftHook func(cycleIndex int, tms, tdi bool) bool

// FakeBackend is a Backend implementation with no real hardware behind it,
// for unit tests. By default it echoes every TDI bit back as TDO in the same
// cycle, and reports a fixed IDCODE when asked to read back at least 4
// bytes, matching real device behavior closely enough to exercise the
// chain-detection and controller code paths deterministically.
type FakeBackend struct {
	// IDCode is returned (little-endian) as the leading 4 bytes of any Flush
	// whose accumulated read is at least 4 bytes long.
	IDCode uint32

	// OnShift, if set, overrides the default echo for each simulated bit.
	OnShift ShiftHook

	Cycles []Cycle

	pendingReadLen int
}

// NewFakeBackend constructs a FakeBackend reporting the given IDCODE.
func NewFakeBackend(idcode uint32) *FakeBackend {
	return &FakeBackend{IDCode: idcode}
}

// Reset clears the recorded cycle log.
func (f *FakeBackend) Reset() { f.Cycles = f.Cycles[:0] }

func (f *FakeBackend) TMS(buf Buffer, path tap.Path) error {
	for _, bit := range path.TMS {
		f.record(bit, false)
	}
	return nil
}

func (f *FakeBackend) Bytes(buf Buffer, before *tap.Path, data Data, after *tap.Path) error {
	if err := data.Validate(); err != nil {
		return err
	}
	if before != nil {
		f.TMS(buf, *before)
	}
	n := int(data.Len)
	var tdoBits []bool
	for i := 0; i < n; i++ {
		tdi := f.bitAt(data, i)
		last := i == n-1
		tms := last && after != nil && len(after.TMS) > 0 && after.TMS[0]
		tdo := f.shiftBit(i, tms, tdi)
		tdoBits = append(tdoBits, tdo)
	}
	if after != nil && len(after.TMS) > 0 {
		for _, bit := range after.TMS[1:] {
			f.record(bit, false)
		}
	}
	if data.Kind == DataRx || data.Kind == DataTxRx {
		out := buf.Extend(int(units.RequiredBytes(units.Bits(n))))
		for i, bit := range tdoBits {
			if bit {
				out[i/8] |= 1 << uint(i%8)
			}
		}
		buf.NotifyWrite(len(out))
	}
	return nil
}

func (f *FakeBackend) Bits(buf Buffer, before *tap.Path, data uint32, length units.Bits, after *tap.Path) error {
	n := int(length)
	tdi := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if data&(1<<uint(i)) != 0 {
			tdi[i/8] |= 1 << uint(i%8)
		}
	}
	return f.Bytes(buf, before, TxRx(tdi, length), after)
}

// Flush returns the accumulated captured bytes, with the leading 4 bytes
// overwritten (little-endian) by the backend's configured IDCode whenever at
// least 4 bytes were captured. Real Xilinx devices always present their
// IDCODE somewhere reachable in a scan; this fake does not model which
// register was actually selected, so it always reports the IDCODE, matching
// fake_backend.rs's flush().
func (f *FakeBackend) Flush(buf Buffer) ([]byte, error) {
	sb, ok := buf.(*sliceBuffer)
	if !ok {
		return nil, nil
	}
	out := append([]byte(nil), sb.buf...)
	if len(out) >= 4 {
		out[0] = byte(f.IDCode)
		out[1] = byte(f.IDCode >> 8)
		out[2] = byte(f.IDCode >> 16)
		out[3] = byte(f.IDCode >> 24)
	}
	return out, nil
}

func (f *FakeBackend) bitAt(data Data, i int) bool {
	switch data.Kind {
	case DataConstantTx:
		return data.Constant
	case DataRx:
		return false
	default:
		return data.TDI[i/8]&(1<<uint(i%8)) != 0
	}
}

func (f *FakeBackend) shiftBit(index int, tms, tdi bool) bool {
	if f.OnShift != nil {
		tdo := f.OnShift(index, tms, tdi)
		f.record(tms, tdi)
		f.Cycles[len(f.Cycles)-1].TDO = tdo
		return tdo
	}
	f.record(tms, tdi)
	tdo := tdi
	f.Cycles[len(f.Cycles)-1].TDO = tdo
	return tdo
}

func (f *FakeBackend) record(tms, tdi bool) {
	f.Cycles = append(f.Cycles, Cycle{TMS: tms, TDI: tdi})
}
