package sysmgr

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/de1soc/hps"
)

func TestConfigureDMA(t *testing.T) {
	buf := make([]uint32, 0x300/4)
	defer runtime.KeepAlive(buf)
	b := At(unsafe.Pointer(&buf[0]), hps.CycloneV)

	cfg := DMAConfig{
		Manager: NonSecure,
		Mux:     [4]MuxSelect{MuxCAN, MuxCAN},
	}
	cfg.Events[0] = NonSecure
	cfg.Events[7] = NonSecure
	cfg.Periphs[31] = NonSecure
	if err := b.ConfigureDMA(cfg); err != nil {
		t.Fatal(err)
	}

	ctrl := buf[dmaGrpCycloneV/4]
	want := uint32(0b0011) | 1<<ctrlMgrNS | 1<<ctrlIrqNS | 1<<(ctrlIrqNS+7)
	if ctrl != want {
		t.Errorf("ctrl: got %#x, want %#x", ctrl, want)
	}
	if per := buf[dmaGrpCycloneV/4+1]; per != 1<<31 {
		t.Errorf("persecurity: got %#x", per)
	}

	// The default enum values leave bits untouched, so reconfiguring
	// part of the block must not clobber the latched mux selection.
	cfg = DMAConfig{}
	cfg.Events[0] = Secure
	if err := b.ConfigureDMA(cfg); err != nil {
		t.Fatal(err)
	}
	want &^= 1 << ctrlIrqNS
	if ctrl := buf[dmaGrpCycloneV/4]; ctrl != want {
		t.Errorf("ctrl: got %#x, want %#x", ctrl, want)
	}

	// MuxFPGA actively routes an interface back.
	cfg = DMAConfig{}
	cfg.Mux[0] = MuxFPGA
	if err := b.ConfigureDMA(cfg); err != nil {
		t.Fatal(err)
	}
	want &^= 1 << ctrlChanSel
	if ctrl := buf[dmaGrpCycloneV/4]; ctrl != want {
		t.Errorf("ctrl: got %#x, want %#x", ctrl, want)
	}
}

func TestConfigureDMAArria10(t *testing.T) {
	buf := make([]uint32, 0x300/4)
	defer runtime.KeepAlive(buf)
	b := At(unsafe.Pointer(&buf[0]), hps.Arria10)

	if err := b.ConfigureDMA(DMAConfig{Mux: [4]MuxSelect{MuxCAN}}); err != ErrNoMux {
		t.Errorf("mux on arria 10: got %v", err)
	}

	cfg := DMAConfig{Manager: NonSecure}
	if err := b.ConfigureDMA(cfg); err != nil {
		t.Fatal(err)
	}
	if ctrl := buf[dmaGrpArria10/4]; ctrl != 1<<ctrlMgrNS {
		t.Errorf("ctrl: got %#x", ctrl)
	}
}

func TestBadSecurity(t *testing.T) {
	buf := make([]uint32, 0x300/4)
	defer runtime.KeepAlive(buf)
	b := At(unsafe.Pointer(&buf[0]), hps.CycloneV)

	cfg := DMAConfig{Manager: Security(42)}
	if err := b.ConfigureDMA(cfg); err != ErrBadSecurity {
		t.Errorf("got %v", err)
	}
	cfg = DMAConfig{Mux: [4]MuxSelect{MuxSelect(9)}}
	if err := b.ConfigureDMA(cfg); err != ErrBadMux {
		t.Errorf("got %v", err)
	}
	if buf[dmaGrpCycloneV/4] != 0 {
		t.Error("failed configure wrote registers")
	}
}
