package xilinx

import "github.com/bryceberger/nafa/pkg/jtag"

// RegistersPerSLR is a snapshot of one SLR's configuration-logic status and
// control registers, read through the CFG_IN/CFG_OUT Type-1 packet path.
type RegistersPerSLR struct {
	Ctl0    uint32
	Stat    uint32
	Cor0    uint32
	IDCode  uint32
	Axss    uint32
	Cor1    uint32
	Wbstar  uint32
	Timer   uint32
	Bootsts uint32
	Ctl1    uint32
	Bspi    uint32
}

// Registers is a full device snapshot, one entry per SLR.
type Registers struct {
	SLRs []RegistersPerSLR
}

// ReadRegisters reads the full register snapshot for target, one pass per
// SLR (numSLR==1 for every non-stacked-silicon-interposer part). Each
// register is read with its own SYNC/NOOP/<reg>/NOOP/NOOP/flush round trip:
// batching several register reads into one configuration packet has been
// observed to silently repeat the first register's value instead of reading
// the rest, so this reads one register at a time.
//
// ReadRegisters covers 7-series, UltraScale, and UltraScale+ devices. Zynq
// 7000 parts have a combined PS+PL IR and need every instruction duplicated
// into both halves; use ReadZynqRegisters for those.
func ReadRegisters(ctl *jtag.Controller, target int, numSLR uint8) (Registers, error) {
	var out Registers
	for slr := uint8(0); slr < numSLR; slr++ {
		r, err := readRegistersOneSLR(ctl, target, slr)
		if err != nil {
			return Registers{}, err
		}
		out.SLRs = append(out.SLRs, r)
	}
	return out, nil
}

func readRegistersOneSLR(ctl *jtag.Controller, target int, slr uint8) (RegistersPerSLR, error) {
	read := func(addr Addr) (uint32, error) {
		return ReadDeviceRegisterWord(ctl, target, slr, addr)
	}

	var r RegistersPerSLR
	var err error
	if r.Ctl0, err = read(AddrCtl0); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Stat, err = read(AddrStat); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Cor0, err = read(AddrCor0); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.IDCode, err = read(AddrIdcode); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Axss, err = read(AddrAxss); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Cor1, err = read(AddrCor1); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Wbstar, err = read(AddrWbstar); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Timer, err = read(AddrTimer); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Bootsts, err = read(AddrBootsts); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Ctl1, err = read(AddrCtl1); err != nil {
		return RegistersPerSLR{}, err
	}
	if r.Bspi, err = read(AddrBspi); err != nil {
		return RegistersPerSLR{}, err
	}
	return r, nil
}
