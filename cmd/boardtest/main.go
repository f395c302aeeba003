//go:build tinygo

// boardtest is the rev-C bring-up check. It walks every relay, chirps
// the buzzer, and streams sensor readings and the raw selector bits so
// a board fresh from assembly can be verified without the full
// firmware in the way.
//
// The protection loop is NOT running here: the relays do exactly what
// this program says. Bench supply only, never a trailer.
package main

import (
	"machine"
	"time"

	"tltb-go/hal"
	"tltb-go/types"
	"tltb-go/x/fmtx"
)

const (
	relayDwell  = 500 * time.Millisecond
	reportEvery = 1 * time.Second
	cyclesToRun = 0 // 0 = loop forever
)

var relayNames = [types.RelayCount]string{
	"left", "right", "brake", "tail", "marker", "aux", "enable",
}

func main() {
	time.Sleep(1500 * time.Millisecond)
	fmtx.DefaultOutput = machine.Serial
	fmtx.Printf("boardtest: tltb rev-c bring-up\r\n")

	board := hal.NewBoard()

	for cycle := 1; cyclesToRun == 0 || cycle <= cyclesToRun; cycle++ {
		fmtx.Printf("--- cycle %d ---\r\n", cycle)

		// Two chirps so the buzzer and its driver transistor get checked
		// before anything clicks.
		for i := 0; i < 2; i++ {
			board.SetBuzzer(true)
			time.Sleep(60 * time.Millisecond)
			board.SetBuzzer(false)
			time.Sleep(120 * time.Millisecond)
		}

		// Walk each output with the enable relay held in, the way the
		// firmware energizes them.
		for r := types.Relay(0); r < types.RelayEnable; r++ {
			mask := types.Mask(r, types.RelayEnable)
			board.SetRelays(mask)
			fmtx.Printf("relay %s on (mask %x)\r\n", relayNames[r], uint8(mask))
			time.Sleep(relayDwell)
			report(board)
		}
		board.SetRelays(types.MaskAllOff)
		fmtx.Printf("all relays off\r\n")

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			report(board)
			time.Sleep(reportEvery)
		}
	}
}

func report(b hal.Board) {
	fmtx.Printf("src=%s load=%s out=%s coil=%s rotary=%x\r\n",
		volts(b.ReadSourceVoltage()),
		amps(b.ReadLoadCurrent()),
		volts(b.ReadOutputVoltage()),
		amps(b.ReadCoilCurrent()),
		b.SampleRotary())
}

func volts(v float32) string {
	if v != v {
		return "absent"
	}
	return fmtx.Sprintf("%.2fV", v)
}

func amps(v float32) string {
	if v != v {
		return "absent"
	}
	return fmtx.Sprintf("%.3fA", v)
}
