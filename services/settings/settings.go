// Package settings persists the operator-adjustable limits behind a
// small key-value Store: NVS flash on the device, memory on the host.
// Protection bypasses are deliberately not persisted; they reset to off
// on every boot.
package settings

import (
	"tltb-go/services/protection"
	"tltb-go/types"
	"tltb-go/x/mathx"
)

// Store is the raw persistence surface.
type Store interface {
	GetFloat(key string) (float32, bool)
	PutFloat(key string, v float32) error
	GetUint8(key string) (uint8, bool)
	PutUint8(key string, v uint8) error
}

// Keys match the NVS namespace layout of the shipped units, so a
// firmware update does not discard calibrated limits.
const (
	KeyLvpCutoff  = "lv_cut"
	KeyOcpLimit   = "ocp_a"
	KeyOutvCutoff = "outv_cut"
	KeyUIMode     = "ui_mode"

	keyRFSlotPrefix = "rf_key" // + slot digit

	// RFSlots is the number of learnable remote buttons.
	RFSlots = 4
)

// Settings reads and writes the typed settings, clamping every limit
// into its safety range on both paths so an out-of-range stored value
// can never widen a protection window.
type Settings struct {
	store Store
}

func New(store Store) *Settings { return &Settings{store: store} }

func (s *Settings) LvpCutoff(def float32) float32 {
	return s.clamped(KeyLvpCutoff, def, protection.LvpMinV, protection.LvpMaxV)
}

func (s *Settings) SetLvpCutoff(v float32) error {
	return s.store.PutFloat(KeyLvpCutoff, mathx.Clamp(v, protection.LvpMinV, protection.LvpMaxV))
}

func (s *Settings) OcpLimit(def float32) float32 {
	return s.clamped(KeyOcpLimit, def, protection.OcpMinA, protection.OcpMaxA)
}

func (s *Settings) SetOcpLimit(a float32) error {
	return s.store.PutFloat(KeyOcpLimit, mathx.Clamp(a, protection.OcpMinA, protection.OcpMaxA))
}

func (s *Settings) OutvCutoff(def float32) float32 {
	return s.clamped(KeyOutvCutoff, def, protection.OutvMinV, protection.OutvMaxV)
}

func (s *Settings) SetOutvCutoff(v float32) error {
	return s.store.PutFloat(KeyOutvCutoff, mathx.Clamp(v, protection.OutvMinV, protection.OutvMaxV))
}

func (s *Settings) clamped(key string, def, lo, hi float32) float32 {
	v, ok := s.store.GetFloat(key)
	if !ok {
		return mathx.Clamp(def, lo, hi)
	}
	return mathx.Clamp(v, lo, hi)
}

func (s *Settings) UIMode() types.UIMode {
	v, ok := s.store.GetUint8(KeyUIMode)
	if !ok || v > uint8(types.UIModeRV) {
		return types.UIModeStandard
	}
	return types.UIMode(v)
}

func (s *Settings) SetUIMode(m types.UIMode) error {
	return s.store.PutUint8(KeyUIMode, uint8(m))
}

// RFSlot returns the relay learned into a remote button slot.
func (s *Settings) RFSlot(slot int) (types.Relay, bool) {
	if slot < 0 || slot >= RFSlots {
		return 0, false
	}
	v, ok := s.store.GetUint8(rfSlotKey(slot))
	if !ok || v >= uint8(types.RelayEnable) {
		return 0, false
	}
	return types.Relay(v), true
}

// SetRFSlot learns a load relay into a slot. The enable relay is not a
// learnable target.
func (s *Settings) SetRFSlot(slot int, r types.Relay) error {
	if slot < 0 || slot >= RFSlots || r >= types.RelayEnable {
		return errInvalidSlot
	}
	return s.store.PutUint8(rfSlotKey(slot), uint8(r))
}

func rfSlotKey(slot int) string {
	return keyRFSlotPrefix + string(rune('0'+slot))
}
