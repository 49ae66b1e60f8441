package cmd

import (
	"fmt"
	"os"

	"github.com/bryceberger/nafa/internal/log"
	"github.com/spf13/cobra"
)

var (
	verbose       bool
	usbFlag       string
	jtagIdxFlag   int
	noProgressBar bool
)

var rootCmd = &cobra.Command{
	Use:   "jtag",
	Short: "Xilinx JTAG configuration-interface driver",
	Long: `jtag talks to Xilinx FPGAs over a USB JTAG cable: it identifies devices on
the scan chain, reads configuration and XADC registers, captures a readback,
and programs a bitstream.

Examples:
  jtag info                              # identify the sole device on the chain
  jtag info-xadc --jtag-idx 1             # read XADC sensors from chain position 1
  jtag program design.bit                 # configure the device
  jtag readback out.bin                   # capture a configuration readback`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&usbFlag, "usb", "0403:6010", "cable VID:PID in hex")
	rootCmd.PersistentFlags().IntVar(&jtagIdxFlag, "jtag-idx", -1, "target device's chain position (required if the chain has more than one device)")
	rootCmd.PersistentFlags().BoolVar(&noProgressBar, "no-progress-bar", false, "disable the terminal progress bar during program/readback")

	cobra.OnInitialize(func() { log.Init(verbose) })
}
