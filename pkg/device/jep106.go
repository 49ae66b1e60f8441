package device

import "fmt"

// Manufacturer is one JEP106 manufacturer table entry.
type Manufacturer struct {
	Code         uint16
	Name         string
	Abbreviation string
}

var manufacturers = map[uint16]Manufacturer{
	0x001: {0x001, "AMD", "AMD"},
	0x002: {0x002, "AMI", "AMI"},
	0x003: {0x003, "Fairchild", "Fairchild"},
	0x004: {0x004, "Fujitsu", "Fujitsu"},
	0x005: {0x005, "GTE", "GTE"},
	0x006: {0x006, "Harris", "Harris"},
	0x007: {0x007, "Hitachi", "Hitachi"},
	0x008: {0x008, "Inmos", "Inmos"},
	0x009: {0x009, "Intel", "Intel"},
	0x00A: {0x00A, "I.T.T.", "ITT"},
	0x00B: {0x00B, "Intersil", "Intersil"},
	0x00C: {0x00C, "Monolithic Memories", "MMI"},
	0x00D: {0x00D, "Mostek", "Mostek"},
	0x00E: {0x00E, "Freescale (Motorola)", "Freescale"},
	0x00F: {0x00F, "National", "National"},
	0x010: {0x010, "NEC", "NEC"},
	0x011: {0x011, "RCA", "RCA"},
	0x012: {0x012, "Raytheon", "Raytheon"},
	0x013: {0x013, "Conexant (Rockwell)", "Conexant"},
	0x014: {0x014, "Seeq", "Seeq"},
	0x015: {0x015, "Philips Semi. (Signetics)", "Philips"},
	0x016: {0x016, "Synertek", "Synertek"},
	0x017: {0x017, "Texas Instruments", "TI"},
	0x018: {0x018, "Toshiba", "Toshiba"},
	0x019: {0x019, "Xicor", "Xicor"},
	0x01A: {0x01A, "Zilog", "Zilog"},
	0x01B: {0x01B, "Eurotechnique", "Eurotechnique"},
	0x01C: {0x01C, "Mitsubishi", "Mitsubishi"},
	0x01D: {0x01D, "Lucent (AT&T)", "Lucent"},
	0x01E: {0x01E, "Exel", "Exel"},
	0x01F: {0x01F, "Atmel", "Atmel"},
	0x020: {0x020, "STMicroelectronics", "STM"},
	0x025: {0x025, "Analog Devices", "ADI"},
	0x02E: {0x02E, "Cypress", "Cypress"},
	0x031: {0x031, "Xilinx", "Xilinx"},
	0x03D: {0x03D, "Altera", "Altera"},
	0x041: {0x041, "Lattice", "Lattice"},
	0x049: {0x049, "Infineon", "Infineon"},
	0x06E: {0x06E, "Microchip", "Microchip"},
	0x093: {0x093, "ARM", "ARM"},
	0x0B7: {0x0B7, "Espressif", "Espressif"},
	0x13B: {0x13B, "Nordic Semiconductor", "Nordic"},
	0x1F1: {0x1F1, "Raspberry Pi", "RPi"},
}

// LookupManufacturer returns the JEP106 entry for code, or a synthesized
// "Unknown (0xNNN)" entry with ok=false if the code is not recognized.
func LookupManufacturer(code uint16) (m Manufacturer, ok bool) {
	if entry, found := manufacturers[code]; found {
		return entry, true
	}
	return Manufacturer{Code: code, Name: fmt.Sprintf("Unknown (0x%03x)", code), Abbreviation: "Unknown"}, false
}
