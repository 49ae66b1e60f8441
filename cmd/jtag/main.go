// Command jtag drives Xilinx FPGAs over a USB JTAG cable.
package main

import "github.com/bryceberger/nafa/cmd/jtag/cmd"

func main() {
	cmd.Execute()
}
