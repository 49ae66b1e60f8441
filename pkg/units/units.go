// Package units wraps raw integers in semantic width types so that bit
// counts, byte counts, and 32-bit-word counts cannot be silently confused at
// a call boundary.
package units

// Bits counts individual bits.
type Bits uint

// Bytes counts 8-bit bytes.
type Bytes uint

// Words32 counts 32-bit words.
type Words32 uint

// AsBits widens a byte count into the equivalent bit count.
func (b Bytes) AsBits() Bits { return Bits(b * 8) }

// AsBytes widens a 32-bit word count into the equivalent byte count.
func (w Words32) AsBytes() Bytes { return Bytes(w * 4) }

// RequiredBytes returns the number of whole bytes needed to hold n bits.
func RequiredBytes(n Bits) Bytes {
	return Bytes((n + 7) / 8)
}
