// Package annunciator drives the audible fault feedback: a repeating
// 200 ms on / 800 ms off alarm while a fault demands attention, and
// short one-shot confirmation beeps otherwise.
package annunciator

import "tltb-go/x/timex"

const (
	faultOnMs  = 200
	faultOffMs = 800

	defaultBeepMs = 60
)

type mode uint8

const (
	modeIdle mode = iota
	modeOneShot
	modeFault
)

// Buzzer is the non-blocking beeper state machine. The fault pattern
// always outranks a one-shot beep.
type Buzzer struct {
	mode       mode
	on         bool
	untilMs    uint32 // one-shot end
	nextToggle uint32 // fault pattern edge
}

// Beep starts (or restarts) a one-shot of ms milliseconds. Ignored while
// the fault alarm is sounding.
func (b *Buzzer) Beep(ms uint16, nowMs uint32) {
	if b.mode == modeFault {
		return
	}
	if ms == 0 {
		ms = defaultBeepMs
	}
	b.mode = modeOneShot
	b.on = true
	b.untilMs = nowMs + uint32(ms)
}

// Tick advances the machine and returns the drive level for this tick.
func (b *Buzzer) Tick(fault bool, nowMs uint32) bool {
	if fault {
		if b.mode != modeFault {
			b.mode = modeFault
			b.on = true
			b.nextToggle = nowMs + faultOnMs
		}
	} else if b.mode == modeFault {
		b.mode = modeIdle
		b.on = false
	}

	switch b.mode {
	case modeOneShot:
		if timex.Reached32(nowMs, b.untilMs) {
			b.on = false
			b.mode = modeIdle
		}
	case modeFault:
		if timex.Reached32(nowMs, b.nextToggle) {
			if b.on {
				b.on = false
				b.nextToggle = nowMs + faultOffMs
			} else {
				b.on = true
				b.nextToggle = nowMs + faultOnMs
			}
		}
	}
	return b.on
}
