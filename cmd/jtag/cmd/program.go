package cmd

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/bryceberger/nafa/internal/xerrors"
	"github.com/bryceberger/nafa/pkg/xilinx"
	"github.com/spf13/cobra"
)

var programCmd = &cobra.Command{
	Use:   "program PATH",
	Short: "Configure the device from a bitstream file",
	Args:  cobra.ExactArgs(1),
	Long: `Read PATH, bit-reverse every byte (bitstreams are stored MSB-first but the
configuration interface shifts LSB-first), and send it through
JShutdown/CfgIn/JStart.

Examples:
  jtag program design.bit
  jtag program --jtag-idx 1 design.bit`,
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(programCmd)
}

func runProgram(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	data := make([]byte, len(raw))
	for i, b := range raw {
		data[i] = reverseByte(b)
	}

	ctl, target, closeFn, err := openChain()
	if err != nil {
		return err
	}
	defer closeFn()

	err = withProgress(int64(len(data)), "programming", func(counter *atomic.Uint64) error {
		var progErr error
		ctl.WithNotifications(counter, func() {
			progErr = xilinx.Program(ctl, target, data)
		})
		return progErr
	})
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.Transport, err)
	}
	return nil
}

func reverseByte(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}
