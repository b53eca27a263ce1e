package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Loggers per concern. They are no-op until InitLoggers runs so that
// packages and tests can log without any setup.
var (
	ErrorLogger    = zap.NewNop()
	AuditLogger    = zap.NewNop()
	RequestLogger  = zap.NewNop()
	SecurityLogger = zap.NewNop()
	SystemLogger   = zap.NewNop()
)

func newLogger(dir, name string, level zapcore.Level) (*zap.Logger, error) {
	var ws zapcore.WriteSyncer
	if dir == "" {
		ws = zapcore.Lock(os.Stdout)
	} else {
		file, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		ws = zapcore.AddSync(file)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		ws,
		level,
	)
	return zap.New(core).With(zap.String("logger", name)), nil
}

// InitLoggers builds every logger. With an empty dir all of them write to stdout,
// otherwise each one gets its own <name>.log file inside dir.
func InitLoggers(dir string) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	specs := []struct {
		target **zap.Logger
		name   string
		level  zapcore.Level
	}{
		{&ErrorLogger, "errors", zapcore.ErrorLevel},
		{&AuditLogger, "audit", zapcore.InfoLevel},
		{&RequestLogger, "request", zapcore.InfoLevel},
		{&SecurityLogger, "security", zapcore.WarnLevel},
		{&SystemLogger, "system", zapcore.InfoLevel},
	}
	for _, s := range specs {
		l, err := newLogger(dir, s.name, s.level)
		if err != nil {
			return err
		}
		*s.target = l
	}
	return nil
}

func SyncLoggers() {
	_ = ErrorLogger.Sync()
	_ = AuditLogger.Sync()
	_ = RequestLogger.Sync()
	_ = SecurityLogger.Sync()
	_ = SystemLogger.Sync()
}
