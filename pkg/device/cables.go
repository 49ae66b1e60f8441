package device

import (
	"fmt"

	"github.com/google/gousb"
)

// BackendKind identifies which concrete Backend implementation a cable
// table entry is served by.
type BackendKind uint8

const (
	BackendKindFTDIMPSSE BackendKind = iota
	BackendKindXPC
)

// Cable describes one recognized USB JTAG cable: its VID/PID, the backend
// that drives it, a human-readable name, and (for FTDI-based cables) the
// default clock frequency and GPIO init burst the MPSSE backend applies once
// after entering sync-bitbang/MPSSE mode.
type Cable struct {
	Name        string
	VID, PID    uint16
	Backend     BackendKind
	ClockHz     int
	ADBUSValue  byte // initial ADBUS GPIO output value, FTDI cables only
	ADBUSMask   byte // initial ADBUS GPIO direction mask, FTDI cables only
	HasGPIOInit bool
}

// KnownCables is the recognized-cable table, one entry per USB JTAG dongle
// this module knows how to talk to.
var KnownCables = []Cable{
	{Name: "amontec-jtagkey", VID: 0x0403, PID: 0xCFF8, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000, ADBUSValue: 0x08, ADBUSMask: 0x1b, HasGPIOInit: true},
	{Name: "arm-usb-ocd-h", VID: 0x15BA, PID: 0x002A, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "bus-blaster-v2", VID: 0x0403, PID: 0x6010, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "bus-blaster-v2-rev2", VID: 0x0403, PID: 0x6014, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "cellular-modem-1", VID: 0x0403, PID: 0x6011, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "dlp2232h", VID: 0x0403, PID: 0x9309, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "ft2232-test", VID: 0x0403, PID: 0x6010, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "ft4232h", VID: 0x0403, PID: 0x6011, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "ftdijtag", VID: 0x0403, PID: 0x0800, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "ikda", VID: 0x0403, PID: 0xCFF9, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "jtaghs2", VID: 0x0403, PID: 0x6014, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "lattice-motctl", VID: 0x0403, PID: 0x6014, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "lisa-l-bbc", VID: 0x15BA, PID: 0x0003, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "lisa-l-bus", VID: 0x15BA, PID: 0x0004, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "lisa-l-if", VID: 0x15BA, PID: 0x0005, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "mimas-a7", VID: 0x0403, PID: 0x6010, Backend: BackendKindFTDIMPSSE, ClockHz: 15_000_000},
	{Name: "nexys4", VID: 0x0403, PID: 0x6010, Backend: BackendKindFTDIMPSSE, ClockHz: 15_000_000},
	{Name: "olimex-arm-usb-ocd", VID: 0x15BA, PID: 0x0003, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "plugjtag", VID: 0x0403, PID: 0x6014, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},
	{Name: "tumpa", VID: 0x0403, PID: 0x8A98, Backend: BackendKindFTDIMPSSE, ClockHz: 30_000_000},
	{Name: "turtelizer2", VID: 0x0403, PID: 0xBDC8, Backend: BackendKindFTDIMPSSE, ClockHz: 6_000_000},

	{Name: "xpc", VID: 0x03FD, PID: 0x0008, Backend: BackendKindXPC},
}

// MatchCables returns every known cable sharing the given VID/PID, since
// several cable names alias the same silicon with different GPIO wiring.
func MatchCables(vid, pid uint16) []Cable {
	var out []Cable
	for _, c := range KnownCables {
		if c.VID == vid && c.PID == pid {
			out = append(out, c)
		}
	}
	return out
}

// EnumerateCables scans every USB device currently attached to the host and
// returns the recognized JTAG cables among them, matched against
// KnownCables by VID/PID.
func EnumerateCables() ([]Cable, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []Cable
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		found = append(found, MatchCables(uint16(desc.Vendor), uint16(desc.Product))...)
		return false
	})
	for _, d := range devs {
		d.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("device: enumerate usb devices: %w", err)
	}
	return found, nil
}
