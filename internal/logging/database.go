package logging

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// DatabaseLogger adapts the global logger to gorm's logger interface.
// Queries slower than SlowThreshold are logged at warn.
type DatabaseLogger struct {
	SlowThreshold time.Duration
}

func NewDatabaseLogger(slowThreshold time.Duration) *DatabaseLogger {
	return &DatabaseLogger{SlowThreshold: slowThreshold}
}

func (l *DatabaseLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (*DatabaseLogger) Info(_ context.Context, format string, v ...interface{}) {
	L.Info().Msgf(format, v...)
}

func (*DatabaseLogger) Warn(_ context.Context, format string, v ...interface{}) {
	L.Warn().Msgf(format, v...)
}

func (*DatabaseLogger) Error(_ context.Context, format string, v ...interface{}) {
	L.Error().Msgf(format, v...)
}

func (l *DatabaseLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()
	level := zerolog.TraceLevel

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		level = zerolog.ErrorLevel
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold:
		level = zerolog.WarnLevel
	}

	L.WithLevel(level).
		CallerSkipFrame(3).
		Int64("rows", rows).
		Str("query", sql).
		Dur("elapsed", elapsed).
		Err(err).
		Msg("")
}
