package xilinx

import "github.com/bryceberger/nafa/pkg/units"

// Command is a fixed JTAG instruction together with the byte count its
// corresponding DR read always returns.
type Command struct {
	Val     uint8
	ReadLen units.Bytes
}

var (
	// IDCode shifts the device's 32-bit IDCODE out through DR.
	IDCode = Command{Val: 0x09, ReadLen: 4}
	// FuseDNA shifts the 64-bit device DNA fuse out through DR.
	FuseDNA = Command{Val: 0x12, ReadLen: 8}
	// FuseKey shifts the 256-bit AES encryption key fuse out through DR.
	FuseKey = Command{Val: 0x31, ReadLen: 32}
)

// Fixed single-byte JTAG instructions used by the configuration protocol.
const (
	CfgIn     uint8 = 0x05
	CfgOut    uint8 = 0x04
	JStart    uint8 = 0x0c
	JProgram  uint8 = 0x0b
	JShutdown uint8 = 0x0d
	XadcDRP   uint8 = 0x37
)
