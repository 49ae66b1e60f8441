package jtag

import (
	"testing"

	"github.com/bryceberger/nafa/pkg/tap"
	"github.com/bryceberger/nafa/pkg/units"
)

// dapFakeBackend is a minimal Backend that echoes TDI as TDO except during
// the final DR read, where it presents a fixed IDCODE.
type dapFakeBackend struct {
	idcode uint32
}

func (f *dapFakeBackend) TMS(buf Buffer, path tap.Path) error { return nil }

func (f *dapFakeBackend) Bytes(buf Buffer, before *tap.Path, data Data, after *tap.Path) error {
	n := int(data.Len)
	sb := buf.(*sliceBuffer)
	if data.Kind == DataRx {
		out := sb.Extend((n + 7) / 8)
		for i := 0; i < n; i++ {
			if f.idcode&(1<<uint(i)) != 0 {
				out[i/8] |= 1 << uint(i%8)
			}
		}
		sb.NotifyWrite(len(out))
	}
	return nil
}

func (f *dapFakeBackend) Bits(buf Buffer, before *tap.Path, data uint32, length units.Bits, after *tap.Path) error {
	return nil
}

func (f *dapFakeBackend) Flush(buf Buffer) ([]byte, error) {
	return buf.(*sliceBuffer).buf, nil
}

func TestWakeZynqUltraScalePlusARMDAPReturnsIDCode(t *testing.T) {
	const want = 0x04711093 // bit 0 set, not all-ones
	backend := &dapFakeBackend{idcode: want}

	got, err := WakeZynqUltraScalePlusARMDAP(backend)
	if err != nil {
		t.Fatalf("WakeZynqUltraScalePlusARMDAP returned error: %v", err)
	}
	if got != want {
		t.Fatalf("idcode = %#x, want %#x", got, want)
	}
}

func TestWakeZynqUltraScalePlusARMDAPRejectsBypass(t *testing.T) {
	backend := &dapFakeBackend{idcode: 0x04711092} // bit 0 clear: still BYPASS

	if _, err := WakeZynqUltraScalePlusARMDAP(backend); err == nil {
		t.Fatalf("expected error for a bypass-shaped response, got nil")
	}
}

func TestWakeZynqUltraScalePlusARMDAPRejectsEndOfChain(t *testing.T) {
	backend := &dapFakeBackend{idcode: 0xffffffff}

	if _, err := WakeZynqUltraScalePlusARMDAP(backend); err == nil {
		t.Fatalf("expected error for an all-ones response, got nil")
	}
}
