package cmd

import (
	"fmt"

	"github.com/bryceberger/nafa/internal/xerrors"
	"github.com/bryceberger/nafa/pkg/device"
	"github.com/bryceberger/nafa/pkg/jtag"
	"github.com/bryceberger/nafa/pkg/xilinx"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print device identifiers and configuration registers",
	Long: `Read the target's IDCODE, device DNA fuse, and configuration-logic
registers (CTL0/STAT/COR0/COR1/WBSTAR/...), one SLR at a time.

Examples:
  jtag info
  jtag info --jtag-idx 1`,
	RunE: runInfo,
}

var infoXadcCmd = &cobra.Command{
	Use:   "info-xadc",
	Short: "Print temperature and supply rails",
	Long: `Read the XADC's temperature and power-supply registers over its DRP and
print each, converted to its physical unit via the family-appropriate
transfer function. Registers without a known conversion for the target's
family are shown as a raw 16-bit reading instead.

Examples:
  jtag info-xadc
  jtag info-xadc --jtag-idx 1`,
	RunE: runInfoXadc,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(infoXadcCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctl, target, closeFn, err := openChain()
	if err != nil {
		return err
	}
	defer closeFn()

	pos := ctl.Chain()[target]
	fmt.Printf("idcode:   %#08x\n", pos.IDCode)
	if !pos.Known {
		fmt.Println("device:   unknown (not in device database)")
		return nil
	}
	fmt.Printf("device:   %s (IRLen=%d)\n", pos.Descriptor.Name, pos.Descriptor.IRLen)

	info, ok := pos.Descriptor.Specific.(device.XilinxInfo)
	if !ok {
		return fmt.Errorf("%w: %s has no Xilinx configuration metadata", xerrors.Protocol, pos.Descriptor.Name)
	}

	dna, err := readDNA(ctl, target, info.Family)
	if err != nil {
		return err
	}
	fmt.Printf("dna:      %#016x\n", dna)

	if info.Family == device.FamilyZynq7000 {
		regs, err := xilinx.ReadZynqRegisters(ctl, target)
		if err != nil {
			return fmt.Errorf("%w: %v", xerrors.Transport, err)
		}
		printRegisters(0, regs)
		return nil
	}

	regs, err := xilinx.ReadRegisters(ctl, target, info.SLRCount)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.Transport, err)
	}
	for i, r := range regs.SLRs {
		printRegisters(i, r)
	}
	return nil
}

func readDNA(ctl *jtag.Controller, target int, family device.Family) (uint64, error) {
	var data []byte
	var err error
	if family == device.FamilyZynq7000 {
		data, err = xilinx.ZynqReadJTAGRegister(ctl, target, xilinx.FuseDNA.Val, xilinx.FuseDNA.ReadLen)
	} else {
		data, err = xilinx.ReadJTAGRegister(ctl, target, xilinx.FuseDNA.Val, xilinx.FuseDNA.ReadLen)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", xerrors.Transport, err)
	}
	var dna uint64
	for i, b := range data {
		dna |= uint64(b) << (8 * i)
	}
	return dna, nil
}

func printRegisters(slr int, r xilinx.RegistersPerSLR) {
	fmt.Printf("slr %d:\n", slr)
	fmt.Printf("  ctl0:    %#08x\n", r.Ctl0)
	fmt.Printf("  stat:    %#08x\n", r.Stat)
	fmt.Printf("  cor0:    %#08x\n", r.Cor0)
	fmt.Printf("  idcode:  %#08x\n", r.IDCode)
	fmt.Printf("  axss:    %#08x\n", r.Axss)
	fmt.Printf("  cor1:    %#08x\n", r.Cor1)
	fmt.Printf("  wbstar:  %#08x\n", r.Wbstar)
	fmt.Printf("  timer:   %#08x\n", r.Timer)
	fmt.Printf("  bootsts: %#08x\n", r.Bootsts)
	fmt.Printf("  ctl1:    %#08x\n", r.Ctl1)
	fmt.Printf("  bspi:    %#08x\n", r.Bspi)
}

// xadcRegisters is read on every info-xadc run: instantaneous temperature
// and the supply rails. Only 7-series, UltraScale and UltraScale+ have
// transfer functions for them; on other families the raw reading is shown.
var xadcRegisters = []struct {
	name string
	addr xilinx.DRPAddr
}{
	{"temperature", xilinx.DRPTemperature},
	{"vccint", xilinx.DRPVccInt},
	{"vccaux", xilinx.DRPVccAux},
	{"vccbram", xilinx.DRPVccBram},
	{"vccpint", xilinx.DRPVccPInt},
	{"vccpaux", xilinx.DRPVccPAux},
	{"vccoddr", xilinx.DRPVccODdr},
}

func runInfoXadc(cmd *cobra.Command, args []string) error {
	ctl, target, closeFn, err := openChain()
	if err != nil {
		return err
	}
	defer closeFn()

	pos := ctl.Chain()[target]
	if !pos.Known {
		return fmt.Errorf("%w: %#08x is not in the device database", xerrors.Protocol, pos.IDCode)
	}
	info, ok := pos.Descriptor.Specific.(device.XilinxInfo)
	if !ok {
		return fmt.Errorf("%w: %s has no Xilinx configuration metadata", xerrors.Protocol, pos.Descriptor.Name)
	}

	cmds := make([]xilinx.DRPCommand, len(xadcRegisters))
	for i, reg := range xadcRegisters {
		cmds[i] = xilinx.DRPCommand{Cmd: xilinx.DRPRead, Addr: reg.addr}
	}

	var raw []byte
	if info.Family == device.FamilyZynq7000 {
		raw, err = xilinx.ZynqReadXADC(ctl, target, cmds)
	} else {
		raw, err = xilinx.ReadXADC(ctl, target, 0, cmds)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.Transport, err)
	}

	values := xilinx.XADCValues(raw, len(cmds))
	for i, reg := range xadcRegisters {
		if i >= len(values) {
			break
		}
		value, ok := xilinx.Convert(reg.addr, info.Family, values[i])
		if !ok {
			fmt.Printf("%-12s raw=%#04x (no known conversion for %s)\n", reg.name, values[i], info.Family)
			continue
		}
		fmt.Printf("%-12s %.3f\n", reg.name, value)
	}
	return nil
}
