package logger

import (
	"strings"

	"go.uber.org/zap"
)

// WithModel tags a logger with the drafting provider and model so every
// generation log line carries them. Blank values are dropped; a nil logger
// becomes a no-op one.
func WithModel(log *zap.Logger, provider, model string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}

	var fields []zap.Field
	if provider = strings.TrimSpace(provider); provider != "" {
		fields = append(fields, zap.String("ai_provider", provider))
	}
	if model = strings.TrimSpace(model); model != "" {
		fields = append(fields, zap.String("ai_model", model))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
