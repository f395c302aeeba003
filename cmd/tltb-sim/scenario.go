package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tltb-go/hal"
	"tltb-go/types"
)

// Scenario is a scripted bench session: timed changes to the simulated
// electricals and selector.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step applies whichever fields are present at its offset. Pointer
// fields distinguish "not mentioned" from zero.
type Step struct {
	AtMs uint32 `yaml:"at_ms"`

	Rotary *string  `yaml:"rotary"` // off|rf|left|right|brake|tail|marker|aux|open
	SrcV   *float32 `yaml:"src_v"`
	LoadA  *float32 `yaml:"load_a"`
	OutV   *float32 `yaml:"out_v"`
	CoilA  *float32 `yaml:"coil_a"`

	Say string `yaml:"say"` // printed when the step fires
}

func loadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range sc.Steps {
		if sc.Steps[i].Rotary != nil {
			if _, err := parseMode(*sc.Steps[i].Rotary); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
		if i > 0 && sc.Steps[i].AtMs < sc.Steps[i-1].AtMs {
			return nil, fmt.Errorf("step %d: at_ms goes backwards", i)
		}
	}
	return &sc, nil
}

func parseMode(s string) (types.RotaryMode, error) {
	for m := types.ModeAllOff; m <= types.ModeAux; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	if s == "open" { // between detents
		return types.ModeInvalid, nil
	}
	return 0, fmt.Errorf("unknown rotary position %q", s)
}

func (st Step) apply(board *hal.SimBoard) {
	if st.Rotary != nil {
		m, _ := parseMode(*st.Rotary)
		if m == types.ModeInvalid {
			board.SetRotaryRaw(0)
		} else {
			board.SetRotaryMode(m)
		}
	}
	if st.SrcV != nil {
		board.SetSourceVoltage(*st.SrcV)
	}
	if st.LoadA != nil {
		board.SetLoadCurrent(*st.LoadA)
	}
	if st.OutV != nil {
		board.SetOutputVoltage(*st.OutV)
	}
	if st.CoilA != nil {
		board.SetCoilCurrent(*st.CoilA)
	}
	if st.Say != "" {
		fmt.Println("--", st.Say)
	}
}
