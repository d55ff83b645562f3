package confirm

import (
	"fmt"
	"os"
	"strings"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/confirm"
	"github.com/fwdask/fwdask/logger"
)

// ParseConfirmer builds the configured confirmer. The WebSocket console is
// also returned separately so that it can be mounted on the API.
func ParseConfirmer(cfg *config.ConfirmConfig) (confirm.Confirmer, *confirm.WebSocketConfirmer, error) {
	if cfg == nil {
		cfg = &config.ConfirmConfig{}
	}

	if cfg.Auto != nil {
		opts := []confirm.AutoOption{}
		if cfg.Auto.Threshold > 0 {
			opts = append(opts, confirm.ThresholdAutoOption(cfg.Auto.Threshold))
		}
		switch strings.ToLower(cfg.Auto.Default) {
		case "forward":
			opts = append(opts, confirm.DefaultAnswerAutoOption(confirm.Forward))
		case "drop", "":
			opts = append(opts, confirm.DefaultAnswerAutoOption(confirm.Drop))
		default:
			return nil, nil, fmt.Errorf("auto confirm: unknown default answer %q", cfg.Auto.Default)
		}
		return confirm.NewAutoConfirmer(opts...), nil, nil
	}

	if cfg.Console {
		return confirm.NewConsoleConfirmer(os.Stdin, os.Stdout), nil, nil
	}

	opts := []confirm.WebSocketOption{
		confirm.LoggerWebSocketOption(logger.Default().WithFields(map[string]any{
			"kind":      "confirm",
			"confirmer": "websocket",
		})),
	}
	if ws := cfg.WebSocket; ws != nil {
		if ws.WriteTimeout > 0 {
			opts = append(opts, confirm.WriteTimeoutWebSocketOption(ws.WriteTimeout))
		}
		if ws.PingInterval > 0 {
			opts = append(opts, confirm.PingIntervalWebSocketOption(ws.PingInterval))
		}
	}
	c := confirm.NewWebSocketConfirmer(opts...)
	return c, c, nil
}
