package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Enumerate the JTAG scan chain",
	Long: `Reset the TAP, walk the scan chain reading each device's IDCODE (or its
single BYPASS bit), and print what was found: chain position, raw IDCODE,
and the matching device database entry if one exists.

Examples:
  jtag discover
  jtag discover --usb 0403:6011`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctl, closeFn, err := openCable()
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Println("Detected JTAG chain:")
	for _, pos := range ctl.Chain() {
		if pos.Known {
			fmt.Printf("  %d: idcode=%#08x  %s (%s, IRLen=%d)\n",
				pos.Index, pos.IDCode, pos.Descriptor.Name, pos.Descriptor.Family, pos.Descriptor.IRLen)
		} else {
			fmt.Printf("  %d: idcode=%#08x  unknown device\n", pos.Index, pos.IDCode)
		}
	}
	return nil
}
