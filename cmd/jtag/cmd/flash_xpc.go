package cmd

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/bryceberger/nafa/internal/xerrors"
	"github.com/bryceberger/nafa/pkg/jtag/xpc"
	"github.com/google/gousb"
	"github.com/spf13/cobra"
)

var flashXPCCmd = &cobra.Command{
	Use:   "flash-xpc FIRMWARE",
	Short: "Upload EZ-USB firmware to a cold-plugged Platform Cable",
	Args:  cobra.ExactArgs(1),
	Long: `Load FIRMWARE into a freshly enumerated, unprogrammed Xilinx Platform
Cable. FIRMWARE is a sequence of chunks, each a 16-bit little-endian load
address, a 16-bit little-endian byte count, then that many data bytes.
Opening the cable for any other command does not load firmware, so this
needs running once per cold plug, before those commands.

Examples:
  jtag flash-xpc xpcu2.bin`,
	RunE: runFlashXPC,
}

func init() {
	rootCmd.AddCommand(flashXPCCmd)
}

func runFlashXPC(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	chunks, err := parseXPCFirmware(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.Shape, err)
	}

	vid, pid, err := parseUSBFlag(usbFlag)
	if err != nil {
		return err
	}

	ctx := gousb.NewContext()
	defer ctx.Close()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return fmt.Errorf("%w: open device: %v", xerrors.Transport, err)
	}
	if dev == nil {
		return fmt.Errorf("%w: no device at VID:PID %04X:%04X", xerrors.Transport, vid, pid)
	}
	defer dev.Close()

	if err := xpc.Flash(dev, chunks); err != nil {
		return fmt.Errorf("%w: %v", xerrors.Transport, err)
	}
	fmt.Println("firmware loaded")
	return nil
}

// parseXPCFirmware splits a firmware blob into its (load address, data)
// chunks: each chunk is a 16-bit LE address, a 16-bit LE byte count, then
// that many bytes.
func parseXPCFirmware(raw []byte) ([]xpc.FirmwareChunk, error) {
	var chunks []xpc.FirmwareChunk
	for len(raw) > 0 {
		if len(raw) < 4 {
			return nil, fmt.Errorf("truncated chunk header (%d bytes left)", len(raw))
		}
		addr := binary.LittleEndian.Uint16(raw[0:2])
		n := binary.LittleEndian.Uint16(raw[2:4])
		raw = raw[4:]
		if int(n) > len(raw) {
			return nil, fmt.Errorf("chunk at %#04x declares %d bytes, only %d remain", addr, n, len(raw))
		}
		chunks = append(chunks, xpc.FirmwareChunk{Addr: addr, Data: raw[:n]})
		raw = raw[n:]
	}
	return chunks, nil
}
