package jtag

import (
	"testing"

	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

func TestStateMachineSequencesDriveFakeBackend(t *testing.T) {
	m := tap.NewStateMachine()
	m.Clock(false) // -> Run-Test/Idle, so GoTo has to traverse more than one edge

	path, err := m.GoTo(tap.StateShiftIR)
	if err != nil {
		t.Fatalf("GoTo returned error: %v", err)
	}

	fake := NewFakeBackend(0x13631093)
	if err := fake.TMS(fakeBuffer{}, path); err != nil {
		t.Fatalf("TMS returned error: %v", err)
	}

	if len(fake.Cycles) != len(path.TMS) {
		t.Fatalf("recorded cycles = %d, want %d", len(fake.Cycles), len(path.TMS))
	}
	for i, bit := range path.TMS {
		if fake.Cycles[i].TMS != bit {
			t.Fatalf("cycle %d TMS = %v, want %v", i, fake.Cycles[i].TMS, bit)
		}
	}
}

func TestFakeBackendEchoesTDI(t *testing.T) {
	fake := NewFakeBackend(0)
	tdi := []byte{0b1010_1100}
	data := TxRx(tdi, units.Bits(8))
	if err := fake.Bytes(fakeBuffer{}, nil, data, nil); err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	if len(fake.Cycles) != 8 {
		t.Fatalf("recorded cycles = %d, want 8", len(fake.Cycles))
	}
	for i := 0; i < 8; i++ {
		want := tdi[0]&(1<<uint(i)) != 0
		if fake.Cycles[i].TDO != want {
			t.Fatalf("cycle %d TDO = %v, want %v (echo of TDI)", i, fake.Cycles[i].TDO, want)
		}
	}
}

func TestFakeBackendFlushReportsIDCode(t *testing.T) {
	fake := NewFakeBackend(0x03822093)
	buf := newSliceBuffer(nil)
	if err := fake.Bytes(buf, nil, Rx(units.Bits(32)), nil); err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	out, err := fake.Flush(buf)
	if err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if len(out) < 4 {
		t.Fatalf("flush output too short: %d bytes", len(out))
	}
	got := uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16 | uint32(out[3])<<24
	if got != fake.IDCode {
		t.Fatalf("flush idcode = %#x, want %#x", got, fake.IDCode)
	}
}

// fakeBuffer is a minimal Buffer for tests that only exercise TMS/Bytes
// recording, not the flush path.
type fakeBuffer struct{}

func (fakeBuffer) Extend(n int) []byte { return make([]byte, n) }
func (fakeBuffer) NotifyWrite(int)     {}
