package config

import (
	"context"
	"errors"

	"tltb-go/bus"

	"github.com/andreyvit/tinyjson"
)

const (
	serviceName  = "config"
	configPrefix = "config"

	// CtxBoardKey is the context key carrying the board ID.
	CtxBoardKey = "board"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// ConfigService publishes the board's embedded defaults as retained
// messages, one per top-level key, so late-starting services pick up
// their section on subscribe.
type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	board, _ := ctx.Value(CtxBoardKey).(string)
	if board == "" {
		return errors.New("missing board ID in context")
	}

	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for board: " + board)
	}

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return errors.New("embedded config is not a JSON object")
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("Error: config:", err.Error())
		}
	}()
}
