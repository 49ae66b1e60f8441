package cmd

import (
	"fmt"

	"github.com/bryceberger/nafa/pkg/device"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List attached JTAG cables",
	Long: `Scan the host's USB devices for recognized JTAG cables (FTDI MPSSE-based
adapters and the legacy Xilinx Platform Cable) and print a summary. Use this
to find the VID:PID to pass via --usb before running other commands.`,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	cables, err := device.EnumerateCables()
	if err != nil {
		return fmt.Errorf("enumerate cables: %w", err)
	}

	if len(cables) == 0 {
		fmt.Println("No JTAG cables found.")
		return nil
	}

	fmt.Println("Detected JTAG cables:")
	for _, c := range cables {
		fmt.Printf("  - %s [VID:PID %04X:%04X]\n", c.Name, c.VID, c.PID)
	}
	return nil
}
