package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. Production always emits
// JSON; elsewhere LOG_FORMAT selects between "json" and readable text.
// Source locations are attached in both forms.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg.IsProduction() || (cfg != nil && cfg.LogFormat == "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "secledger"))
}
