//go:build tinygo

// Firmware entrypoint for the trailer lighting test box. Wires the bus,
// the board HAL and every service; the control service owns the relays
// from here on.
package main

import (
	"context"
	"time"

	"machine"

	"tltb-go/bus"
	"tltb-go/hal"
	"tltb-go/services/annunciator"
	"tltb-go/services/config"
	"tltb-go/services/control"
	"tltb-go/services/heartbeat"
	"tltb-go/services/rfremote"
	"tltb-go/services/settings"
	"tltb-go/services/telemetry"
)

const boardID = "tltb-rev-c"

func main() {
	// Let USB CDC enumerate before the first log lines.
	time.Sleep(1500 * time.Millisecond)
	println("Info: tltb boot,", boardID)

	board := hal.NewBoard()
	b := bus.NewBus(16)
	ctx := context.WithValue(context.Background(), config.CtxBoardKey, boardID)

	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	// TODO: back with the NVS flash partition once the tinygo esp32
	// target exposes it; limits are volatile across power cycles until
	// then.
	set := settings.New(settings.NewMemStore())

	ctl := control.NewService(board, control.DefaultLoopConfig(), set, 5*time.Millisecond)
	if err := ctl.Start(ctx, b.NewConnection("control")); err != nil {
		println("Error: control start:", err.Error())
	}

	tel := telemetry.NewService(machine.Serial, 100)
	if err := tel.Start(ctx, b.NewConnection("telemetry")); err != nil {
		println("Error: telemetry start:", err.Error())
	}

	ann := annunciator.NewService(board)
	if err := ann.Start(ctx, b.NewConnection("annunciator")); err != nil {
		println("Error: annunciator start:", err.Error())
	}

	// The RF decoder feeds this once its driver lands; learn requests
	// already work over the bus.
	keys := make(chan rfremote.KeyEvent, 8)
	rf := rfremote.NewService(keys, set)
	if err := rf.Start(ctx, b.NewConnection("rfremote")); err != nil {
		println("Error: rfremote start:", err.Error())
	}

	hb := heartbeat.NewService()
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		println("Error: heartbeat start:", err.Error())
	}

	println("Info: services up")
	select {}
}
