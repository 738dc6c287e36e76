package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// maxSQLLength is the longest SQL string logged before truncation.
const maxSQLLength = 200

// zapGormLogger adapts zap to gorm's logger.Interface. Level filtering is
// left to zap, so SQL is only formatted when debug is enabled.
type zapGormLogger struct {
	log *zap.Logger
}

func newGormLogger(l *zap.Logger) logger.Interface {
	if l == nil {
		l = zap.NewNop()
	}
	return zapGormLogger{log: l.Named("gorm")}
}

func (l zapGormLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l zapGormLogger) Info(_ context.Context, msg string, args ...any) {
	l.log.Info(fmt.Sprintf(msg, args...))
}

func (l zapGormLogger) Warn(_ context.Context, msg string, args ...any) {
	l.log.Warn(fmt.Sprintf(msg, args...))
}

func (l zapGormLogger) Error(_ context.Context, msg string, args ...any) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// Trace logs every statement at debug level. ErrRecordNotFound is the
// normal "no rows" result of First and is not an error.
func (l zapGormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		l.log.Error("sql error",
			zap.String("sql", truncateSQL(sql)),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}

	if ce := l.log.Check(zap.DebugLevel, "sql"); ce != nil {
		sql, rows := fc()
		ce.Write(
			zap.String("sql", truncateSQL(sql)),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed))
	}
}

func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLength {
		return sql
	}
	half := (maxSQLLength - 3) / 2
	return sql[:half] + "..." + sql[len(sql)-half:]
}
