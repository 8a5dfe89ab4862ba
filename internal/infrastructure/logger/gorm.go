package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Gorm sends gorm's query log through zap.
type Gorm struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

var _ gormlogger.Interface = (*Gorm)(nil)

func NewGorm(l *zap.Logger, level gormlogger.LogLevel) *Gorm {
	return &Gorm{log: l.Named("gorm"), level: level, slow: 200 * time.Millisecond}
}

func (g *Gorm) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *Gorm) Info(_ context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Info {
		g.log.Sugar().Infof(msg, data...)
	}
}

func (g *Gorm) Warn(_ context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Warn {
		g.log.Sugar().Warnf(msg, data...)
	}
}

func (g *Gorm) Error(_ context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Error {
		g.log.Sugar().Errorf(msg, data...)
	}
}

func (g *Gorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	switch {
	case err != nil && g.level >= gormlogger.Error:
		// not-found is an expected outcome for lookups
		if errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		g.log.Error("sql error", append(fields, zap.Error(err))...)
	case elapsed > g.slow && g.level >= gormlogger.Warn:
		g.log.Warn("slow sql", fields...)
	case g.level >= gormlogger.Info:
		g.log.Debug("sql", fields...)
	}
}

// GormLevel maps the service log level onto gorm's.
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
