package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board ID (same value placed in ctx under CtxBoardKey)
// Val: raw JSON bytes for that board
// -----------------------------------------------------------------------------

const cfgRevC = `{
  "protection": {
      "lvp_cutoff_v": 11.8,
      "ocp_limit_a": 20.0,
      "outv_cutoff_v": 11.5
  },
  "cooldown": {
      "threshold_a": 20.5,
      "sustain_s": 120,
      "rest_s": 120
  },
  "coil": {
      "nominal_ma": 80,
      "tolerance_pct": 40
  },
  "telemetry": {
      "frame_interval_ms": 100
  },
  "heartbeat": {
      "interval_s": 5
  }
}`

const cfgSim = `{
  "protection": {
      "lvp_cutoff_v": 11.8,
      "ocp_limit_a": 20.0,
      "outv_cutoff_v": 11.5
  },
  "telemetry": {
      "frame_interval_ms": 50
  }
}`

var embeddedConfigs = map[string][]byte{
	"tltb-rev-c": []byte(cfgRevC),
	"sim":        []byte(cfgSim),
}
