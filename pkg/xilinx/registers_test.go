package xilinx

import "testing"

func TestType1ToRawEncoding(t *testing.T) {
	got := NewType1(OpRead, AddrStat, 1).ToRaw()
	want := uint32(1)<<29 | uint32(OpRead)<<27 | uint32(AddrStat)<<13 | 1
	if got != want {
		t.Fatalf("ToRaw() = %#x, want %#x", got, want)
	}
}

func TestType1ToRawWordCountField(t *testing.T) {
	got := NewType1(OpWrite, AddrFar, 37).ToRaw()
	if wc := got & 0x7ff; wc != 37 {
		t.Fatalf("word count field = %d, want 37", wc)
	}
}

func TestType1ToRawWordCountFitsElevenBits(t *testing.T) {
	got := NewType1(OpWrite, AddrFdri, 2047).ToRaw()
	if wc := got & 0x7ff; wc != 2047 {
		t.Fatalf("word count field = %d, want 2047 (11-bit field)", wc)
	}
}

func TestType2Encoding(t *testing.T) {
	got := Type2(OpRead, 0x123456)
	want := uint32(2)<<29 | uint32(OpRead)<<27 | 0x123456
	if got != want {
		t.Fatalf("Type2() = %#x, want %#x", got, want)
	}
}

func TestType2WordCountMasked(t *testing.T) {
	got := Type2(OpWrite, 0xffffffff)
	want := uint32(2)<<29 | uint32(OpWrite)<<27 | 0x07ffffff
	if got != want {
		t.Fatalf("Type2 did not mask word count to 27 bits: got %#x, want %#x", got, want)
	}
}
