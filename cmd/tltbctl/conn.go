package main

import (
	"fmt"
	"io"

	"go.bug.st/serial"

	"tltb-go/services/telemetry"
	"tltb-go/types"
)

func openPort() (serial.Port, error) {
	if portName == "" {
		return nil, fmt.Errorf("no serial port given (use --port)")
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	return port, nil
}

// readFrames pumps bytes from r through a frame decoder, calling onSnap
// for each decoded snapshot and onErr for each dropped frame. It returns
// when the reader fails, which for serial means the cable went away.
func readFrames(r io.Reader, onSnap func(types.Snapshot), onErr func(error)) error {
	dec := telemetry.NewDecoder()
	buf := make([]byte, 128)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return err
		}
		for _, b := range buf[:n] {
			snap, derr := dec.DecodeByte(b)
			if derr != nil {
				onErr(derr)
				continue
			}
			if snap != nil {
				onSnap(*snap)
			}
		}
	}
}

func describeSnapshot(s types.Snapshot) string {
	latch := ""
	if s.OcpLatched {
		latch += " OCP"
	}
	if s.CoilLatched {
		latch += " COIL"
	}
	if s.LvpLatched {
		latch += " LVP"
	}
	if s.OutvLatched {
		latch += " OUTV"
	}
	if latch == "" {
		latch = " -"
	}
	extra := ""
	if s.StartupGuard {
		extra += " guard"
	}
	if s.CooldownActive {
		extra += fmt.Sprintf(" cooldown=%ds", s.CooldownSecsLeft)
	}
	return fmt.Sprintf("t=%dms mode=%s relays=%07b latched:%s%s src=%.2fV load=%.2fA out=%.2fV",
		s.TSms, s.Mode, s.Relays, latch, extra, s.SrcV, s.LoadA, s.OutV)
}
