package settings

import (
	"testing"

	"tltb-go/types"
)

func TestLimitDefaultsAndClamping(t *testing.T) {
	s := New(NewMemStore())

	// Nothing stored: defaults pass through, clamped.
	if v := s.LvpCutoff(15.5); v != 15.5 {
		t.Fatalf("default lvp = %v", v)
	}
	if v := s.OcpLimit(99); v != 25.5 {
		t.Fatalf("out-of-range default not clamped: %v", v)
	}

	// Writes clamp before storing.
	if err := s.SetOcpLimit(40); err != nil {
		t.Fatal(err)
	}
	if v := s.OcpLimit(20); v != 25.5 {
		t.Fatalf("stored ocp = %v, want clamped 25.5", v)
	}

	if err := s.SetLvpCutoff(14.2); err != nil {
		t.Fatal(err)
	}
	if v := s.LvpCutoff(15.5); v != 14.2 {
		t.Fatalf("stored lvp = %v, want 14.2", v)
	}
}

func TestStoredValueNeverWidensWindow(t *testing.T) {
	st := NewMemStore()
	// Simulate a corrupt or legacy value written behind our back.
	st.PutFloat(KeyLvpCutoff, 3.0)
	st.PutFloat(KeyOutvCutoff, 200.0)

	s := New(st)
	if v := s.LvpCutoff(15.5); v != 12.0 {
		t.Fatalf("lvp read = %v, want clamped 12.0", v)
	}
	if v := s.OutvCutoff(11.5); v != 16.0 {
		t.Fatalf("outv read = %v, want clamped 16.0", v)
	}
}

func TestUIMode(t *testing.T) {
	st := NewMemStore()
	s := New(st)

	if s.UIMode() != types.UIModeStandard {
		t.Fatal("default ui mode not standard")
	}
	if err := s.SetUIMode(types.UIModeRV); err != nil {
		t.Fatal(err)
	}
	if s.UIMode() != types.UIModeRV {
		t.Fatal("rv mode not persisted")
	}

	// Garbage byte falls back to standard.
	st.PutUint8(KeyUIMode, 7)
	if s.UIMode() != types.UIModeStandard {
		t.Fatal("invalid stored mode not rejected")
	}
}

func TestRFSlots(t *testing.T) {
	s := New(NewMemStore())

	if _, ok := s.RFSlot(0); ok {
		t.Fatal("empty slot reported learned")
	}
	if err := s.SetRFSlot(0, types.RelayBrake); err != nil {
		t.Fatal(err)
	}
	if r, ok := s.RFSlot(0); !ok || r != types.RelayBrake {
		t.Fatalf("slot 0 = %v %v, want brake", r, ok)
	}

	if err := s.SetRFSlot(1, types.RelayEnable); err == nil {
		t.Fatal("enable relay accepted as RF target")
	}
	if err := s.SetRFSlot(RFSlots, types.RelayLeft); err == nil {
		t.Fatal("out-of-range slot accepted")
	}
}
