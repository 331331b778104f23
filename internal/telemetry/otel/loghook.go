package otel

import (
	"time"

	"github.com/rs/zerolog"
	otellog "go.opentelemetry.io/otel/log"
)

// LogHook forwards zerolog events at or above MinLevel to an OTel logger.
// zerolog hooks cannot read event fields, so only the message, level and time are exported.
type LogHook struct {
	logger   otellog.Logger
	minLevel zerolog.Level
}

// NewLogHook returns a hook emitting through provider. A nil provider returns nil,
// which callers should skip.
func NewLogHook(provider otellog.LoggerProvider, minLevel zerolog.Level) *LogHook {
	if provider == nil {
		return nil
	}
	return &LogHook{logger: provider.Logger(instrumentationName), minLevel: minLevel}
}

// Run implements zerolog.Hook.
func (h *LogHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if h == nil || level < h.minLevel || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}
	var rec otellog.Record
	rec.SetTimestamp(time.Now().UTC())
	rec.SetSeverity(severity(level))
	rec.SetSeverityText(level.String())
	rec.SetBody(otellog.StringValue(msg))
	h.logger.Emit(e.GetCtx(), rec)
}

func severity(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.InfoLevel:
		return otellog.SeverityInfo
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel:
		return otellog.SeverityFatal
	case zerolog.PanicLevel:
		return otellog.SeverityFatal4
	default:
		return otellog.SeverityUndefined
	}
}
