// Package jtag implements the chain-aware command issuer that sits between
// the TAP path router and a cable backend: BYPASS padding across multi-device
// chains, IR-length accounting, chain discovery, and the Xilinx Zynq
// UltraScale+ ARM DAP wake-up sequence.
package jtag

import (
	"fmt"

	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

// Buffer is the growable output region a Backend deposits read-back (TDO)
// bytes into when it flushes. A Backend keeps its pending wire commands in
// its own storage; the caller (Controller) hands it a Buffer per command
// batch.
type Buffer interface {
	// Extend grows the buffer by n bytes and returns a slice over the new
	// region for the backend to fill in.
	Extend(n int) []byte
	// NotifyWrite reports n more payload bytes queued or captured by the
	// backend, driving the scoped progress counter if one is installed (see
	// WithNotifications).
	NotifyWrite(n int)
}

// sliceBuffer is the default Buffer backing a single command batch.
type sliceBuffer struct {
	buf    []byte
	notify func(int)
}

func newSliceBuffer(notify func(int)) *sliceBuffer {
	return &sliceBuffer{notify: notify}
}

func (b *sliceBuffer) Extend(n int) []byte {
	start := len(b.buf)
	b.buf = append(b.buf, make([]byte, n)...)
	return b.buf[start : start+n]
}

func (b *sliceBuffer) NotifyWrite(n int) {
	if b.notify != nil {
		b.notify(n)
	}
}

// Backend abstracts a physical or simulated JTAG cable. Every method
// operates relative to the TAP's current position; before/after paths let a
// single call cross state boundaries (e.g. Shift-DR -> Exit1-DR -> ...
// -> Shift-IR) without a separate TMS-only call in between.
type Backend interface {
	// TMS clocks the TMS pattern in path. The TDI level driven during these
	// cycles is backend-specific.
	TMS(buf Buffer, path tap.Path) error

	// Bytes shifts whole bytes of Data through the currently selected
	// register, optionally preceded and followed by a TAP transition. The
	// final bit of the shift rides on TMS=1 exactly when after is non-nil and
	// non-empty, per the IEEE 1149.1 Shift-Exit1 rule.
	Bytes(buf Buffer, before *tap.Path, data Data, after *tap.Path) error

	// Bits shifts the low length bits of data, at most 32 (typically an
	// instruction register), through the currently selected register.
	Bits(buf Buffer, before *tap.Path, data uint32, length units.Bits, after *tap.Path) error

	// Flush submits every command accumulated in buf to the cable and blocks
	// until the transaction completes, returning the bytes read back.
	Flush(buf Buffer) ([]byte, error)
}

// DataKind tags which direction(s) of a Bytes/Bits shift matter to the
// caller.
type DataKind uint8

const (
	// DataTx shifts TDI out; TDO is discarded.
	DataTx DataKind = iota
	// DataRx shifts TDI as all zero bits while capturing TDO.
	DataRx
	// DataTxRx shifts TDI out while capturing TDO.
	DataTxRx
	// DataConstantTx repeats a single bit value as TDI for the whole shift;
	// TDO is discarded. Used for BYPASS padding and idle clocking.
	DataConstantTx
)

// Data describes one Bytes/Bits shift operand. Exactly one of TDI/Constant is
// meaningful depending on Kind.
type Data struct {
	Kind     DataKind
	TDI      []byte
	Constant bool
	Len      units.Bits
}

// Tx builds a transmit-only Data operand.
func Tx(tdi []byte, length units.Bits) Data {
	return Data{Kind: DataTx, TDI: tdi, Len: length}
}

// Rx builds a receive-only Data operand of the given bit length.
func Rx(length units.Bits) Data {
	return Data{Kind: DataRx, Len: length}
}

// TxRx builds a bidirectional Data operand.
func TxRx(tdi []byte, length units.Bits) Data {
	return Data{Kind: DataTxRx, TDI: tdi, Len: length}
}

// ConstantTx builds a Data operand that repeats a fixed bit value, used for
// BYPASS padding and idle clocking where the content does not matter.
func ConstantTx(bit bool, length units.Bits) Data {
	return Data{Kind: DataConstantTx, Constant: bit, Len: length}
}

// Validate checks that d's buffers are large enough for its declared length,
// the one precondition every Backend implementation needs checked before it
// starts emitting wire commands.
func (d Data) Validate() error {
	if d.Len == 0 {
		return fmt.Errorf("jtag: zero-length shift")
	}
	switch d.Kind {
	case DataTx, DataTxRx:
		need := int(units.RequiredBytes(d.Len))
		if len(d.TDI) < need {
			return fmt.Errorf("jtag: tdi buffer too short: have %d bytes, need %d", len(d.TDI), need)
		}
	}
	return nil
}
