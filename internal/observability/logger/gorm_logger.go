package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the GORM zap logger.
type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// GormLogger routes GORM output through the request-scoped zap logger.
// Bound parameters are never logged since they carry tenant identifiers.
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{
		level:         cfg.Level,
		slowThreshold: cfg.SlowThreshold,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) log(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.level < min {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Trace logs failed and slow statements; everything else only at Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		l.logQuery(ctx, fc, elapsed, err, zapcore.ErrorLevel)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.logQuery(ctx, fc, elapsed, nil, zapcore.WarnLevel)
	case l.level >= gormlogger.Info:
		l.logQuery(ctx, fc, elapsed, nil, zapcore.DebugLevel)
	}
}

func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) logQuery(ctx context.Context, fc func() (string, int64), elapsed time.Duration, err error, level zapcore.Level) {
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", operationFromSQL(sql)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if ce := FromContext(ctx).Check(level, "db.query"); ce != nil {
		ce.Write(fields...)
	}
}

func operationFromSQL(sql string) string {
	for _, token := range strings.Fields(strings.ToUpper(sql)) {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return token
		}
	}
	return "UNKNOWN"
}

var _ gormlogger.Interface = (*GormLogger)(nil)
