package device

import "github.com/bryceberger/nafa/pkg/units"

// Family identifies a Xilinx silicon generation, used to select which
// configuration-protocol and XADC transfer-function variant applies.
type Family uint8

const (
	FamilyUnknown Family = iota
	Family7Series
	FamilyUltraScale
	FamilyUltraScalePlus
	FamilyZynq7000
	FamilyZynqUltraScalePlus
	FamilyVersal
)

func (f Family) String() string {
	switch f {
	case Family7Series:
		return "7series"
	case FamilyUltraScale:
		return "ultrascale"
	case FamilyUltraScalePlus:
		return "ultrascale+"
	case FamilyZynq7000:
		return "zynq-7000"
	case FamilyZynqUltraScalePlus:
		return "zynq-ultrascale+"
	case FamilyVersal:
		return "versal"
	default:
		return "unknown"
	}
}

// Specific carries device-family-specific metadata beyond name/IRLen. The
// zero value (nil) means "no specific information available" for IDCODEs
// found in the chain but absent from the database.
type Specific interface {
	isSpecific()
}

// XilinxInfo is the Specific implementation for every Xilinx configuration
// device this module knows how to talk to.
type XilinxInfo struct {
	Family   Family
	SLRCount uint8
	Readback units.Words32
}

func (XilinxInfo) isSpecific() {}

// Descriptor describes one JTAG device recognized by masked IDCODE.
type Descriptor struct {
	Name     string
	IRLen    units.Bits
	Specific Specific
}

// Database maps masked IDCODEs to descriptors.
type Database struct {
	entries map[uint32]Descriptor
}

// NewDatabase constructs a Database preloaded with Builtin.
func NewDatabase() *Database {
	db := &Database{entries: make(map[uint32]Descriptor, len(Builtin))}
	for idcode, desc := range Builtin {
		db.entries[idcode] = desc
	}
	return db
}

// Lookup returns the descriptor for raw's masked IDCODE.
func (db *Database) Lookup(raw uint32) (Descriptor, bool) {
	desc, ok := db.entries[Masked(raw)]
	return desc, ok
}

// Add registers or overrides a descriptor, keyed by its masked IDCODE.
func (db *Database) Add(raw uint32, desc Descriptor) {
	db.entries[Masked(raw)] = desc
}

// xilinx is a shorthand constructor for Xilinx device table entries, masking
// the IDCODE the same way the runtime lookup does so table entries can be
// written with the raw value straight from a datasheet.
func xilinx(idcodeRaw uint32, irlen units.Bits, name string, family Family, slr uint8, readback units.Words32) (uint32, Descriptor) {
	return Masked(idcodeRaw), Descriptor{
		Name:  name,
		IRLen: irlen,
		Specific: XilinxInfo{
			Family:   family,
			SLRCount: slr,
			Readback: readback,
		},
	}
}

// Builtin is the compiled-in IDCODE database. Each entry is keyed by masked
// IDCODE: many part/speed/package/grade suffixes share one masked IDCODE, so
// this table carries one row per distinct silicon die rather than one row
// per orderable part number.
var Builtin = map[uint32]Descriptor{}

func init() {
	rows := []struct {
		idcode   uint32
		irlen    units.Bits
		name     string
		family   Family
		slr      uint8
		readback units.Words32
	}{
		// 7-series (IRLEN=6)
		{0x0362D093, 6, "xc7a35t", Family7Series, 1, 2000},
		{0x0362C093, 6, "xc7a50t", Family7Series, 1, 2000},
		{0x03631093, 6, "xc7a100t", Family7Series, 1, 4000},
		{0x03636093, 6, "xc7a200t", Family7Series, 1, 8000},
		{0x03647093, 6, "xc7k70t", Family7Series, 1, 8000},
		{0x03636093 + 0x10000, 6, "xc7k160t", Family7Series, 1, 16000},
		{0x03751093, 6, "xc7k325t", Family7Series, 1, 21000},
		{0x03931093, 6, "xc7k355t", Family7Series, 1, 21000},
		{0x03682093, 6, "xc7v585t", Family7Series, 1, 32000},
		{0x03691093, 6, "xc7v2000t", Family7Series, 1, 128000},
		{0x037C8093, 6, "xc7vx485t", Family7Series, 1, 32000},
		{0x03742093, 6, "xc7vx690t", Family7Series, 1, 48000},
		{0x03844093, 6, "xc7vx980t", Family7Series, 1, 64000},
		{0x03939093, 6, "xc7vx1140t", Family7Series, 1, 96000},

		// Zynq-7000 (IRLEN=12, processor+FPGA stuck together on one TAP)
		{0x13722093, 12, "xc7z010", FamilyZynq7000, 1, 2000},
		{0x13723093, 12, "xc7z020", FamilyZynq7000, 1, 4000},
		{0x13731093, 12, "xc7z030", FamilyZynq7000, 1, 8000},
		{0x13736093, 12, "xc7z045", FamilyZynq7000, 1, 16000},
		{0x13747093, 12, "xc7z100", FamilyZynq7000, 1, 21000},

		// UltraScale (IRLEN=6)
		{0x03822093, 6, "xcku025", FamilyUltraScale, 1, 16000},
		{0x03823093, 6, "xcku035", FamilyUltraScale, 1, 21000},
		{0x03824093, 6, "xcku040", FamilyUltraScale, 1, 24000},
		{0x03919093, 6, "xcku060", FamilyUltraScale, 1, 32000},
		{0x0390D093, 6, "xcku085", FamilyUltraScale, 2, 48000},
		{0x0392D093, 6, "xcku095", FamilyUltraScale, 2, 54000},
		{0x0396D093, 6, "xcku115", FamilyUltraScale, 2, 64000},
		{0x03842093, 6, "xcvu065", FamilyUltraScale, 2, 48000},
		{0x0392C093, 6, "xcvu080", FamilyUltraScale, 2, 54000},
		{0x03933093, 6, "xcvu095", FamilyUltraScale, 2, 54000},
		{0x03931093 + 0x100, 6, "xcvu125", FamilyUltraScale, 2, 72000},
		{0x0396C093, 6, "xcvu160", FamilyUltraScale, 4, 96000},
		{0x0398E093, 6, "xcvu190", FamilyUltraScale, 4, 112000},
		{0x03932093, 6, "xcvu440", FamilyUltraScale, 4, 240000},

		// UltraScale+ (IRLEN=6)
		{0x04A63093, 6, "xcku3p", FamilyUltraScalePlus, 1, 16000},
		{0x04A62093, 6, "xcku5p", FamilyUltraScalePlus, 1, 24000},
		{0x04ACE093, 6, "xcku9p", FamilyUltraScalePlus, 1, 32000},
		{0x04A64093, 6, "xcku11p", FamilyUltraScalePlus, 1, 40000},
		{0x04A66093, 6, "xcku13p", FamilyUltraScalePlus, 1, 48000},
		{0x04A65093, 6, "xcku15p", FamilyUltraScalePlus, 2, 64000},
		{0x04B31093, 6, "xcvu3p", FamilyUltraScalePlus, 1, 54000},
		{0x04B39093, 6, "xcvu5p", FamilyUltraScalePlus, 1, 72000},
		{0x04B43093, 6, "xcvu7p", FamilyUltraScalePlus, 1, 96000},
		{0x04B49093, 6, "xcvu9p", FamilyUltraScalePlus, 3, 128000},
		{0x04B51093, 6, "xcvu11p", FamilyUltraScalePlus, 3, 144000},
		{0x04B57093, 6, "xcvu13p", FamilyUltraScalePlus, 4, 192000},

		// Zynq UltraScale+ (IRLEN=12, ARM DAP wake-up required). Keyed by
		// the IDCODE the part presents after the wake-up; before it, the
		// low 12 bits read 0x126 (see IsZynqUltraScalePlusWakeup).
		{0x04710093, 12, "xczu3eg", FamilyZynqUltraScalePlus, 1, 16000},
		{0x04720093, 12, "xczu5ev", FamilyZynqUltraScalePlus, 1, 24000},
		{0x04730093, 12, "xczu7ev", FamilyZynqUltraScalePlus, 1, 40000},
		{0x04738093, 12, "xczu9eg", FamilyZynqUltraScalePlus, 1, 64000},
		{0x04750093, 12, "xczu15eg", FamilyZynqUltraScalePlus, 1, 96000},
		{0x04758093, 12, "xczu19eg", FamilyZynqUltraScalePlus, 1, 128000},
	}
	for _, r := range rows {
		id, desc := xilinx(r.idcode, r.irlen, r.name, r.family, r.slr, r.readback)
		Builtin[id] = desc
	}
}

// IsZynqUltraScalePlusWakeup reports whether masked's low 12 bits match the
// constant every Zynq UltraScale+ part shares, the trigger for the ARM DAP
// wake-up sequence (spec.md section 4.5 / zynq_32.rs).
func IsZynqUltraScalePlusWakeup(masked uint32) bool {
	return masked&0xfff == 0x126
}
