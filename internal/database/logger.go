package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Logger 把 gorm 日志转到 logrus，按 gorm 的级别输出到对应的 logrus 级别。
type Logger struct {
	entry         *log.Entry
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewLogger(entry *log.Entry, level gormlogger.LogLevel, slow time.Duration) *Logger {
	return &Logger{entry: entry, level: level, slowThreshold: slow}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.entry.WithContext(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.entry.WithContext(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.entry.WithContext(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

// Trace 记录每条 SQL。唯一键/外键冲突由调用方转换成业务错误，只记 warn。
func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	fields := func() log.Fields {
		sql, rows := fc()
		return log.Fields{"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds()}
	}

	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return
	case err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated)):
		if l.level >= gormlogger.Warn {
			l.entry.WithContext(ctx).WithFields(fields()).WithError(err).Warn("constraint violation")
		}
	case err != nil:
		if l.level >= gormlogger.Error {
			l.entry.WithContext(ctx).WithFields(fields()).WithError(err).Error("query failed")
		}
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		if l.level >= gormlogger.Warn {
			l.entry.WithContext(ctx).WithFields(fields()).Warn("slow query")
		}
	case l.level >= gormlogger.Info:
		l.entry.WithContext(ctx).WithFields(fields()).Debug("query")
	}
}
