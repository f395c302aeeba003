package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"tltb-go/bus"
	"tltb-go/hal"
	"tltb-go/types"
)

const consoleHelp = `commands:
  rotate <off|rf|left|right|brake|tail|marker|aux|open>
  src <volts> | load <amps> | outv <volts> | coil <amps|auto>
  set <lvp|ocp|outv> <value>
  bypass <lvp|outv> <on|off>
  rf <left|right|brake|tail|marker|aux> <on|off>
  status
  quit`

func runConsole(board *hal.SimBoard, b *bus.Bus, latest *snapshotMirror) {
	conn := b.NewConnection("sim-console")
	fmt.Println("tltb-sim console; 'help' for commands")

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return
		}
		args, err := shlex.Split(sc.Text())
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return
		}
		if err := dispatch(args, board, conn, latest); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func dispatch(args []string, board *hal.SimBoard, conn *bus.Connection, latest *snapshotMirror) error {
	switch args[0] {
	case "help":
		fmt.Println(consoleHelp)

	case "rotate":
		if len(args) != 2 {
			return fmt.Errorf("usage: rotate <position>")
		}
		m, err := parseMode(args[1])
		if err != nil {
			return err
		}
		if m == types.ModeInvalid {
			board.SetRotaryRaw(0)
		} else {
			board.SetRotaryMode(m)
		}

	case "src", "load", "outv", "coil":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s <value>", args[0])
		}
		if args[0] == "coil" && args[1] == "auto" {
			board.CoupleCoil(0.08)
			return nil
		}
		v, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return err
		}
		switch args[0] {
		case "src":
			board.SetSourceVoltage(float32(v))
		case "load":
			board.SetLoadCurrent(float32(v))
		case "outv":
			board.SetOutputVoltage(float32(v))
		case "coil":
			board.SetCoilCurrent(float32(v))
		}

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set <lvp|ocp|outv> <value>")
		}
		v, err := strconv.ParseFloat(args[2], 32)
		if err != nil {
			return err
		}
		var verb string
		var payload any
		switch args[1] {
		case "lvp":
			verb, payload = "set_lvp", types.SetLvpCutoff{Volts: float32(v)}
		case "ocp":
			verb, payload = "set_ocp", types.SetOcpLimit{Amps: float32(v)}
		case "outv":
			verb, payload = "set_outv", types.SetOutvCutoff{Volts: float32(v)}
		default:
			return fmt.Errorf("unknown limit %q", args[1])
		}
		conn.Publish(conn.NewMessage(bus.T("tltb", "control", verb), payload, false))

	case "bypass":
		if len(args) != 3 {
			return fmt.Errorf("usage: bypass <lvp|outv> <on|off>")
		}
		on, err := parseOnOff(args[2])
		if err != nil {
			return err
		}
		conn.Publish(conn.NewMessage(
			bus.T("tltb", "control", "bypass"),
			types.SetBypass{Channel: args[1], On: on},
			false,
		))

	case "rf":
		if len(args) != 3 {
			return fmt.Errorf("usage: rf <relay> <on|off>")
		}
		m, err := parseMode(args[1])
		if err != nil || m < types.ModeLeft || m > types.ModeAux {
			return fmt.Errorf("unknown relay %q", args[1])
		}
		on, err := parseOnOff(args[2])
		if err != nil {
			return err
		}
		conn.Publish(conn.NewMessage(
			bus.T("tltb", "control", "rf_key"),
			types.RFKey{Relay: relayForMode(m), On: on},
			false,
		))

	case "status":
		fmt.Println(describe(latest.get()))

	default:
		return fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("want on/off, got %q", s)
}

// relayForMode maps a single-output selector position to its relay.
func relayForMode(m types.RotaryMode) types.Relay {
	switch m {
	case types.ModeLeft:
		return types.RelayLeft
	case types.ModeRight:
		return types.RelayRight
	case types.ModeBrake:
		return types.RelayBrake
	case types.ModeTail:
		return types.RelayTail
	case types.ModeMarker:
		return types.RelayMarker
	default:
		return types.RelayAux
	}
}
