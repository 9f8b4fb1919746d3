package logger

import (
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
)

// Setup initializes Logrus logging via a rotating file. Incident logs are
// part of the operational record, so rotated files are kept for a month.
func Setup() {
	rotator := &lumberjack.Logger{
		Filename:   "./logs/sar-command.log",
		MaxSize:    25, // megabytes
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}

	logrus.SetOutput(rotator)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	// Debug captures the engine's per-stage pipeline logs.
	logrus.SetLevel(logrus.DebugLevel)
}

// GormLogger returns the standard Logrus logger for GORM
func GormLogger() *logrus.Logger {
	return logrus.StandardLogger()
}
