package cmd

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/bryceberger/nafa/internal/xerrors"
	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/xilinx"
	"github.com/spf13/cobra"
)

var readbackCmd = &cobra.Command{
	Use:   "readback PATH",
	Short: "Capture a configuration readback to PATH",
	Args:  cobra.ExactArgs(1),
	Long: `Read the target's configuration memory back out over FDRO and write it to
PATH. The read length comes from the device database's per-part word count.

Examples:
  jtag readback out.bin
  jtag readback --jtag-idx 1 out.bin`,
	RunE: runReadback,
}

func init() {
	rootCmd.AddCommand(readbackCmd)
}

func runReadback(cmd *cobra.Command, args []string) error {
	ctl, target, closeFn, err := openChain()
	if err != nil {
		return err
	}
	defer closeFn()

	pos := ctl.Chain()[target]
	if !pos.Known {
		return fmt.Errorf("%w: %#08x is not in the device database, readback length is unknown", xerrors.Protocol, pos.IDCode)
	}
	info, ok := pos.Descriptor.Specific.(device.XilinxInfo)
	if !ok {
		return fmt.Errorf("%w: %s has no Xilinx configuration metadata", xerrors.Protocol, pos.Descriptor.Name)
	}

	length := info.Readback.AsBytes()

	var data []byte
	err = withProgress(int64(length), "reading back", func(counter *atomic.Uint64) error {
		var readErr error
		ctl.WithNotifications(counter, func() {
			data, readErr = xilinx.Readback(ctl, target, length)
		})
		return readErr
	})
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.Transport, err)
	}

	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}
	return nil
}
