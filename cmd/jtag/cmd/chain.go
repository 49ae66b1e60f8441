package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryceberger/nafa/internal/xerrors"
	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/jtag"
	"github.com/bryceberger/nafa/pkg/jtag/ftdi"
	"github.com/bryceberger/nafa/pkg/jtag/xpc"
)

// closer is the subset of a cable backend's lifecycle this package needs
// once a Controller has taken ownership of it for shifting.
type closer interface {
	Close() error
}

// openCable parses --usb, opens the matching cable's backend, and detects
// the scan chain, without picking a target device. Used by commands (like
// discover) that operate on the whole chain.
func openCable() (ctl *jtag.Controller, closeFn func() error, err error) {
	vid, pid, err := parseUSBFlag(usbFlag)
	if err != nil {
		return nil, nil, err
	}

	cables := device.MatchCables(vid, pid)
	if len(cables) == 0 {
		return nil, nil, fmt.Errorf("%w: no known cable for VID:PID %04X:%04X", xerrors.Transport, vid, pid)
	}
	cable := cables[0]

	var backend jtag.Backend
	var c closer
	switch cable.Backend {
	case device.BackendKindFTDIMPSSE:
		b, err := ftdi.Open(cable)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", xerrors.Transport, err)
		}
		backend, c = b, b
	case device.BackendKindXPC:
		b, err := xpc.Open(cable)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", xerrors.Transport, err)
		}
		backend, c = b, b
	default:
		return nil, nil, fmt.Errorf("%w: cable %q has no registered backend", xerrors.Unsupported, cable.Name)
	}

	ctl = jtag.NewController(backend)
	if _, err := ctl.DetectChain(device.NewDatabase()); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("%w: %v", xerrors.Protocol, err)
	}
	return ctl, c.Close, nil
}

// openChain is openCable plus resolving --jtag-idx (or the sole device, if
// there is exactly one) to a target chain position, for commands that act
// on a single device.
func openChain() (ctl *jtag.Controller, target int, closeFn func() error, err error) {
	ctl, closeFn, err = openCable()
	if err != nil {
		return nil, 0, nil, err
	}

	target, err = resolveTarget(ctl.Chain())
	if err != nil {
		closeFn()
		return nil, 0, nil, err
	}
	return ctl, target, closeFn, nil
}

func resolveTarget(chain []jtag.ChainPosition) (int, error) {
	if jtagIdxFlag >= 0 {
		if jtagIdxFlag >= len(chain) {
			return 0, fmt.Errorf("%w: --jtag-idx %d out of range (chain has %d devices)", xerrors.Shape, jtagIdxFlag, len(chain))
		}
		return jtagIdxFlag, nil
	}
	switch len(chain) {
	case 0:
		return 0, fmt.Errorf("%w: no devices detected on chain", xerrors.Protocol)
	case 1:
		return 0, nil
	default:
		var names []string
		for _, pos := range chain {
			names = append(names, fmt.Sprintf("%d: %#08x (%s)", pos.Index, pos.IDCode, pos.Descriptor.Name))
		}
		return 0, fmt.Errorf("%w: multiple devices detected, pass --jtag-idx:\n  %s", xerrors.Ambiguity, strings.Join(names, "\n  "))
	}
}

func parseUSBFlag(s string) (vid, pid uint16, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("--usb must be VID:PID in hex, got %q", s)
	}
	v, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("--usb vendor id: %w", err)
	}
	p, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("--usb product id: %w", err)
	}
	return uint16(v), uint16(p), nil
}
