package cmd

import (
	"testing"

	"github.com/bryceberger/nafa/internal/xerrors"
	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/jtag"
)

func TestParseUSBFlagParsesHex(t *testing.T) {
	vid, pid, err := parseUSBFlag("0403:6010")
	if err != nil {
		t.Fatalf("parseUSBFlag returned error: %v", err)
	}
	if vid != 0x0403 || pid != 0x6010 {
		t.Fatalf("parseUSBFlag = %#04x:%#04x, want 0403:6010", vid, pid)
	}
}

func TestParseUSBFlagRejectsMissingColon(t *testing.T) {
	if _, _, err := parseUSBFlag("04036010"); err == nil {
		t.Fatalf("expected error for a VID:PID with no separator")
	}
}

func TestParseUSBFlagRejectsBadHex(t *testing.T) {
	if _, _, err := parseUSBFlag("zzzz:6010"); err == nil {
		t.Fatalf("expected error for a non-hex vendor id")
	}
}

func TestResolveTargetEmptyChainIsProtocolError(t *testing.T) {
	old := jtagIdxFlag
	jtagIdxFlag = -1
	defer func() { jtagIdxFlag = old }()

	_, err := resolveTarget(nil)
	if err == nil {
		t.Fatalf("expected error for an empty chain")
	}
	if !xerrors.Is(err, xerrors.Protocol) {
		t.Fatalf("resolveTarget error = %v, want a protocol error", err)
	}
}

func TestResolveTargetSingleDeviceNeedsNoFlag(t *testing.T) {
	old := jtagIdxFlag
	jtagIdxFlag = -1
	defer func() { jtagIdxFlag = old }()

	chain := []jtag.ChainPosition{{Index: 0, IDCode: 0x03822093}}
	got, err := resolveTarget(chain)
	if err != nil {
		t.Fatalf("resolveTarget returned error: %v", err)
	}
	if got != 0 {
		t.Fatalf("resolveTarget = %d, want 0", got)
	}
}

func TestResolveTargetMultipleDevicesWithoutFlagIsAmbiguous(t *testing.T) {
	old := jtagIdxFlag
	jtagIdxFlag = -1
	defer func() { jtagIdxFlag = old }()

	chain := []jtag.ChainPosition{
		{Index: 0, IDCode: 0x03822093, Descriptor: device.Descriptor{Name: "xcku025"}, Known: true},
		{Index: 1, IDCode: 0x13722093, Descriptor: device.Descriptor{Name: "xc7z010"}, Known: true},
	}
	_, err := resolveTarget(chain)
	if err == nil {
		t.Fatalf("expected error when --jtag-idx is unset and the chain has >1 device")
	}
	if !xerrors.Is(err, xerrors.Ambiguity) {
		t.Fatalf("resolveTarget error = %v, want an ambiguity error", err)
	}
}

func TestResolveTargetHonorsJtagIdxFlag(t *testing.T) {
	old := jtagIdxFlag
	jtagIdxFlag = 1
	defer func() { jtagIdxFlag = old }()

	chain := []jtag.ChainPosition{{Index: 0}, {Index: 1}}
	got, err := resolveTarget(chain)
	if err != nil {
		t.Fatalf("resolveTarget returned error: %v", err)
	}
	if got != 1 {
		t.Fatalf("resolveTarget = %d, want 1", got)
	}
}

func TestResolveTargetJtagIdxOutOfRangeIsShapeError(t *testing.T) {
	old := jtagIdxFlag
	jtagIdxFlag = 5
	defer func() { jtagIdxFlag = old }()

	chain := []jtag.ChainPosition{{Index: 0}}
	_, err := resolveTarget(chain)
	if err == nil {
		t.Fatalf("expected error for an out-of-range --jtag-idx")
	}
	if !xerrors.Is(err, xerrors.Shape) {
		t.Fatalf("resolveTarget error = %v, want a shape error", err)
	}
}

func TestParseXPCFirmwareSplitsChunks(t *testing.T) {
	blob := []byte{
		0x00, 0x00, 0x02, 0x00, 0xaa, 0xbb,
		0x10, 0x00, 0x03, 0x00, 0x01, 0x02, 0x03,
	}
	chunks, err := parseXPCFirmware(blob)
	if err != nil {
		t.Fatalf("parseXPCFirmware returned error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].Addr != 0x0000 || len(chunks[0].Data) != 2 {
		t.Fatalf("chunks[0] = %+v, want addr=0 len=2", chunks[0])
	}
	if chunks[1].Addr != 0x0010 || len(chunks[1].Data) != 3 {
		t.Fatalf("chunks[1] = %+v, want addr=0x10 len=3", chunks[1])
	}
}

func TestParseXPCFirmwareRejectsTruncatedHeader(t *testing.T) {
	if _, err := parseXPCFirmware([]byte{0x00, 0x00, 0x02}); err == nil {
		t.Fatalf("expected error for a truncated chunk header")
	}
}

func TestParseXPCFirmwareRejectsShortBody(t *testing.T) {
	blob := []byte{0x00, 0x00, 0x04, 0x00, 0x01, 0x02}
	if _, err := parseXPCFirmware(blob); err == nil {
		t.Fatalf("expected error when a chunk declares more bytes than remain")
	}
}
