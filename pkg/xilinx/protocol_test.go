package xilinx

import "testing"

func TestShiftForSLRPlacesInstructionInOwnSlot(t *testing.T) {
	got := shiftForSLR(2, CfgIn)
	want := uint32(0b100100_100100_000101_100100_100100)
	if got != want {
		t.Fatalf("shiftForSLR(2, CfgIn) = %#b, want %#b", got, want)
	}
}

func TestShiftForSLRZeroIsLowestSlot(t *testing.T) {
	got := shiftForSLR(0, CfgOut)
	if got&0b111111 != uint32(CfgOut&0b111111) {
		t.Fatalf("low slot = %#b, want %#b", got&0b111111, CfgOut&0b111111)
	}
	if got>>6 != 0b100100_100100_100100_100100 {
		t.Fatalf("remaining slots not all NOOP: %#b", got>>6)
	}
}

func TestShiftForSLROutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range SLR index")
		}
	}()
	shiftForSLR(5, CfgIn)
}

func TestReverseBitsRoundTrip(t *testing.T) {
	for _, b := range []byte{0x00, 0xff, 0x01, 0x80, 0x93, 0x3c} {
		if got := reverseBits(reverseBits(b)); got != b {
			t.Fatalf("reverseBits(reverseBits(%#x)) = %#x, want %#x", b, got, b)
		}
	}
}

func TestReverseBitsKnownValues(t *testing.T) {
	cases := map[byte]byte{
		0x01: 0x80,
		0x80: 0x01,
		0x0f: 0xf0,
		0x93: 0xc9,
	}
	for in, want := range cases {
		if got := reverseBits(in); got != want {
			t.Fatalf("reverseBits(%#x) = %#x, want %#x", in, got, want)
		}
	}
}

func TestBitstreamToWireOrderLength(t *testing.T) {
	words := []uint32{Sync, Noop, Noop}
	out := bitstreamToWireOrder(words)
	if len(out) != len(words)*4 {
		t.Fatalf("len(out) = %d, want %d", len(out), len(words)*4)
	}
}

func TestBitstreamToWireOrderReflectsEachByte(t *testing.T) {
	out := bitstreamToWireOrder([]uint32{0x01020304})
	want := []byte{reverseBits(0x01), reverseBits(0x02), reverseBits(0x03), reverseBits(0x04)}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %#x, want %#x", i, out[i], want[i])
		}
	}
}

func TestReadDeviceRegisterWordReflectsToNaturalOrder(t *testing.T) {
	ctl, _ := singleDeviceController(t, xcku025IDCode)

	got, err := ReadDeviceRegisterWord(ctl, 0, 0, AddrIdcode)
	if err != nil {
		t.Fatalf("ReadDeviceRegisterWord returned error: %v", err)
	}

	b0, b1, b2, b3 := byte(xcku025IDCode), byte(xcku025IDCode>>8), byte(xcku025IDCode>>16), byte(xcku025IDCode>>24)
	want := uint32(reverseBits(b0))<<24 | uint32(reverseBits(b1))<<16 | uint32(reverseBits(b2))<<8 | uint32(reverseBits(b3))
	if got != want {
		t.Fatalf("ReadDeviceRegisterWord = %#x, want %#x", got, want)
	}
}

func TestReadJTAGRegisterReturnsRequestedLength(t *testing.T) {
	ctl, _ := singleDeviceController(t, xcku025IDCode)

	out, err := ReadJTAGRegister(ctl, 0, IDCode.Val, IDCode.ReadLen)
	if err != nil {
		t.Fatalf("ReadJTAGRegister returned error: %v", err)
	}
	if got := len(out); got != int(IDCode.ReadLen) {
		t.Fatalf("len(out) = %d, want %d", got, int(IDCode.ReadLen))
	}
}

func TestProgramSequencesJShutdownCfgInJStart(t *testing.T) {
	ctl, _ := singleDeviceController(t, xcku025IDCode)

	if err := Program(ctl, 0, []byte{0xde, 0xad, 0xbe, 0xef}); err != nil {
		t.Fatalf("Program returned error: %v", err)
	}
}

func TestReadXADCShiftsCommandsAndReadsResponse(t *testing.T) {
	ctl, _ := singleDeviceController(t, xcku025IDCode)

	cmds := []DRPCommand{
		{Cmd: DRPRead, Addr: DRPTemperature},
		{Cmd: DRPRead, Addr: DRPVccInt},
	}
	out, err := ReadXADC(ctl, 0, 0, cmds)
	if err != nil {
		t.Fatalf("ReadXADC returned error: %v", err)
	}
	if want := (len(cmds) + 1) * 4; len(out) != want {
		t.Fatalf("len(out) = %d, want %d", len(out), want)
	}
	if values := XADCValues(out, len(cmds)); len(values) != len(cmds) {
		t.Fatalf("len(XADCValues(...)) = %d, want %d", len(values), len(cmds))
	}
}

func TestReadbackReturnsRequestedLength(t *testing.T) {
	ctl, _ := singleDeviceController(t, xcku025IDCode)

	out, err := Readback(ctl, 0, 16)
	if err != nil {
		t.Fatalf("Readback returned error: %v", err)
	}
	if len(out) != 16 {
		t.Fatalf("len(out) = %d, want 16", len(out))
	}
}
