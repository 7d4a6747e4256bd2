package logger

import (
	"go.uber.org/zap/zapcore"
)

// LogSink receives entries that should be persisted.
type LogSink interface {
	AddLog(entry LogEntry)
}

// DBCore wraps a zap core and forwards entries at or above minLevel to a sink.
type DBCore struct {
	zapcore.Core
	sink     LogSink
	minLevel zapcore.Level
}

func NewDBCore(baseCore zapcore.Core, sink LogSink, minLevel zapcore.Level) zapcore.Core {
	return &DBCore{
		Core:     baseCore,
		sink:     sink,
		minLevel: minLevel,
	}
}

// With keeps the DB tee on child loggers.
func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	return &DBCore{
		Core:     c.Core.With(fields),
		sink:     c.sink,
		minLevel: c.minLevel,
	}
}

// Write is called for every log entry
func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= c.minLevel {
		var ip, requestID string
		for _, f := range fields {
			switch f.Key {
			case "ip":
				ip = f.String
			case "request_id":
				requestID = f.String
			}
		}

		c.sink.AddLog(LogEntry{
			Level:     entry.Level,
			Message:   entry.Message,
			IpAddress: ip,
			RequestID: requestID,
			Caller:    entry.Caller.Function,
		})
	}

	// still print to the console
	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
