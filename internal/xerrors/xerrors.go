// Package xerrors defines the sentinel error categories the CLI and the
// core distinguish between when deciding how to report a failure.
package xerrors

import "errors"

// Transport covers USB timeouts, endpoint failures, and kernel driver
// refusals. Origin: a cable backend. No retry is attempted; the current
// command batch aborts.
var Transport = errors.New("transport error")

// Protocol covers a chain returning fewer bytes than requested, a device
// left in BYPASS when a real register was expected, or a version-masked
// IDCODE with no database entry.
var Protocol = errors.New("protocol violation")

// Shape covers a caller requesting an IR instruction wider than the
// target's IR length, or a before/after BYPASS run longer than the chain
// can actually hold. These indicate a programming error, not a device
// fault.
var Shape = errors.New("shape error")

// Ambiguity covers a chain with more than one device where the caller did
// not select which one to target.
var Ambiguity = errors.New("ambiguous chain target")

// Unsupported covers an operation invoked against a device whose family
// does not implement it, such as XADC access on a device with no XADC.
var Unsupported = errors.New("unsupported operation")

// Is reports whether err (or anything it wraps) is one of category.
func Is(err, category error) bool { return errors.Is(err, category) }
