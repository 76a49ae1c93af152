package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapObserver emits events through a zap.Logger. It mirrors SlogObserver's
// field mapping (Source as a dedicated field, Data entries flattened as
// top-level fields) for structured-logging backends that prefer zap's
// allocation-free field API over log/slog.
type ZapObserver struct {
	logger *zap.Logger
}

// NewZapObserver creates a ZapObserver that emits to the given logger.
func NewZapObserver(logger *zap.Logger) *ZapObserver {
	return &ZapObserver{logger: logger}
}

func (o *ZapObserver) OnEvent(_ context.Context, event Event) {
	fields := make([]zap.Field, 0, len(event.Data)+2)
	fields = append(fields, zap.String("source", event.Source))
	fields = append(fields, zap.Time("event_timestamp", event.Timestamp))
	for k, v := range event.Data {
		fields = append(fields, zap.Any(k, v))
	}

	o.logger.Check(event.Level.zapLevel(), string(event.Type)).Write(fields...)
}

// zapLevel maps an OTel-aligned Level to the nearest zapcore.Level.
func (l Level) zapLevel() zapcore.Level {
	switch {
	case l <= 8:
		return zapcore.DebugLevel
	case l <= 12:
		return zapcore.InfoLevel
	case l <= 16:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
