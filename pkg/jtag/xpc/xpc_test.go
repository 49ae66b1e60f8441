package xpc

import (
	"testing"

	"github.com/bryceberger/nafa/pkg/jtag"
	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

type fakeBuffer struct {
	buf []byte
}

func (f *fakeBuffer) Extend(n int) []byte {
	start := len(f.buf)
	f.buf = append(f.buf, make([]byte, n)...)
	return f.buf[start : start+n]
}

func (f *fakeBuffer) NotifyWrite(int) {}

// TestAddBitPacksNibbles checks a four-cycle example against the layout in
// the Backend doc comment: TMS=1001, TDI=0101, TDO=1100 (cycle 0 first)
// packs to 0x9a, 0x3f.
func TestAddBitPacksNibbles(t *testing.T) {
	b := &Backend{}
	cycles := []struct{ tms, tdi, tdo bool }{
		{true, false, true},
		{false, true, true},
		{false, false, false},
		{true, true, false},
	}
	for _, c := range cycles {
		b.addBit(c.tms, c.tdi, c.tdo)
	}
	if len(b.cmdBuf) != 2 {
		t.Fatalf("cmdBuf length = %d, want 2", len(b.cmdBuf))
	}
	if b.cmdBuf[0] != 0x9a {
		t.Fatalf("cmdBuf[0] = %#x, want 0x9a", b.cmdBuf[0])
	}
	if b.cmdBuf[1] != 0x3f {
		t.Fatalf("cmdBuf[1] = %#x, want 0x3f", b.cmdBuf[1])
	}
}

// TestAddBitRollsOverAtFourBits checks that a fifth bit starts a new nibble
// pair rather than overflowing into the first.
func TestAddBitRollsOverAtFourBits(t *testing.T) {
	b := &Backend{}
	for i := 0; i < 5; i++ {
		b.addBit(false, true, false)
	}
	if len(b.cmdBuf) != 4 {
		t.Fatalf("cmdBuf length = %d, want 4 (two nibble pairs)", len(b.cmdBuf))
	}
	if b.cmdBuf[2] != 0x01 {
		t.Fatalf("cmdBuf[2] = %#x, want 0x01 (one bit into the new pair)", b.cmdBuf[2])
	}
}

// TestBytesDefersLastBitOntoTMS checks that the final TDI bit of a Bytes
// shift rides alongside the first TMS bit of the following transition,
// rather than being clocked as its own cycle.
func TestBytesDefersLastBitOntoTMS(t *testing.T) {
	b := &Backend{}
	buf := &fakeBuffer{}

	data := jtag.Tx([]byte{0x01}, units.Bits(2)) // bits: 1, 0
	after := &tap.Path{TMS: []bool{true, false}}

	if err := b.Bytes(buf, nil, data, after); err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}

	// Three cycles, all in one nibble pair: the non-final TDI bit (TMS=0,
	// TDI=1), the deferred final bit on the first TMS bit (TMS=1, TDI=0),
	// and the second TMS bit (TMS=0, TDI high). Unshared, the final bit
	// would take a cycle of its own.
	if len(b.cmdBuf) != 2 {
		t.Fatalf("cmdBuf length = %d, want 2", len(b.cmdBuf))
	}
	if b.cmdBuf[0] != 0x25 {
		t.Fatalf("cmdBuf[0] = %#x, want 0x25 (TMS 010, TDI 101)", b.cmdBuf[0])
	}
}

// TestBitsShortLength exercises the sub-byte Bits path used for instruction
// register shifts narrower than 8 bits.
func TestBitsShortLength(t *testing.T) {
	b := &Backend{}
	buf := &fakeBuffer{}

	if err := b.Bits(buf, nil, 0x05, units.Bits(3), nil); err != nil {
		t.Fatalf("Bits returned error: %v", err)
	}
	if len(b.cmdBuf) != 2 {
		t.Fatalf("cmdBuf length = %d, want 2", len(b.cmdBuf))
	}
	// low 3 bits of 0x05 (0b101) land in cmdBuf[0] bits 0,2 of the TDI
	// nibble with TMS held low throughout.
	if b.cmdBuf[0]&0x0f != 0x05 {
		t.Fatalf("cmdBuf[0] tdi nibble = %#x, want 0x05", b.cmdBuf[0]&0x0f)
	}
	if b.cmdBuf[0]&0xf0 != 0 {
		t.Fatalf("cmdBuf[0] tms nibble = %#x, want 0 (TMS held low)", b.cmdBuf[0]&0xf0)
	}
}
