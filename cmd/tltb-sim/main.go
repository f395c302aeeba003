// tltb-sim runs the real control loop against a simulated board, either
// scripted from a YAML scenario or driven from an interactive console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"tltb-go/bus"
	"tltb-go/hal"
	"tltb-go/services/control"
	"tltb-go/services/settings"
	"tltb-go/types"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "YAML scenario to run instead of the console")
		tickMs       = flag.Uint("tick", 5, "control loop period in ms")
	)
	flag.Parse()

	board := hal.NewSim()
	board.SetSourceVoltage(13.8)
	board.SetLoadCurrent(0)
	board.SetOutputVoltage(12.5)
	board.CoupleCoil(0.08)
	board.SetRotaryMode(types.ModeAllOff)

	b := bus.NewBus(64)
	set := settings.New(settings.NewMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctl := control.NewService(board, control.DefaultLoopConfig(), set,
		time.Duration(*tickMs)*time.Millisecond)
	if err := ctl.Start(ctx, b.NewConnection("control")); err != nil {
		fmt.Fprintln(os.Stderr, "control start:", err)
		os.Exit(1)
	}

	latest := newSnapshotMirror(ctx, b)

	if *scenarioPath != "" {
		if err := runScenario(*scenarioPath, board, latest); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	runConsole(board, b, latest)
}

// snapshotMirror keeps the most recent telemetry snapshot.
type snapshotMirror struct {
	mu   sync.Mutex
	snap types.Snapshot
}

func newSnapshotMirror(ctx context.Context, b *bus.Bus) *snapshotMirror {
	m := &snapshotMirror{}
	conn := b.NewConnection("sim-mirror")
	sub := conn.Subscribe(bus.T("tltb", "telemetry"))
	go func() {
		defer conn.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-sub.Channel():
				if snap, ok := msg.Payload.(types.Snapshot); ok {
					m.mu.Lock()
					m.snap = snap
					m.mu.Unlock()
				}
			}
		}
	}()
	return m
}

func (m *snapshotMirror) get() types.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func runScenario(path string, board *hal.SimBoard, latest *snapshotMirror) error {
	sc, err := loadScenario(path)
	if err != nil {
		return err
	}
	fmt.Printf("scenario %q: %d steps\n", sc.Name, len(sc.Steps))

	start := time.Now()
	for _, st := range sc.Steps {
		due := start.Add(time.Duration(st.AtMs) * time.Millisecond)
		time.Sleep(time.Until(due))
		st.apply(board)
		fmt.Printf("[%6dms] %s\n", st.AtMs, describe(latest.get()))
	}

	// Settle a few ticks, then report the end state.
	time.Sleep(100 * time.Millisecond)
	snap := latest.get()
	fmt.Println("final:", describe(snap))
	if snap.AnyLatched() {
		os.Exit(2)
	}
	return nil
}

func describe(s types.Snapshot) string {
	latch := ""
	if s.LvpLatched {
		latch += " LVP"
	}
	if s.OcpLatched {
		latch += " OCP"
	}
	if s.OutvLatched {
		latch += " OUTV"
	}
	if s.CoilLatched {
		latch += " COIL"
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
	return fmt.Sprintf("mode=%s relays=%07b latched:%s%s src=%.1fV load=%.1fA out=%.1fV",
		s.Mode, s.Relays, latch, extra, s.SrcV, s.LoadA, s.OutV)
}
