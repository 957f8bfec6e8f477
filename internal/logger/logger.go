package logger

import (
	stdlog "log"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a logger
type Logger struct {
	*zap.SugaredLogger
}

// New creates a new logger that writes JSON, errors to stderr and everything else to stdout
func New(loglevel zapcore.Level) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return newLogger(loglevel, zapcore.NewJSONEncoder(encoderConfig))
}

// NewConsole creates a new logger with human readable output, for command line tools
func NewConsole(loglevel zapcore.Level) *Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeCaller = nil

	return newLogger(loglevel, zapcore.NewConsoleEncoder(encoderConfig))
}

func newLogger(loglevel zapcore.Level, encoder zapcore.Encoder) *Logger {
	// Log errors to stderr
	stderrLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= loglevel && lvl >= zapcore.ErrorLevel
	})

	stdoutLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= loglevel && lvl < zapcore.ErrorLevel
	})
	stdout := zapcore.Lock(os.Stdout)
	stderr := zapcore.Lock(os.Stderr)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, stderr, stderrLevel),
		zapcore.NewCore(encoder, stdout, stdoutLevel),
	)

	log := zap.New(core, zap.AddCaller())

	// Redirect stdlib log package to zap
	_, _ = zap.RedirectStdLogAt(log, zapcore.ErrorLevel)

	return &Logger{
		log.Sugar(),
	}
}

// With returns a child logger with the given key-value pairs attached
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		l.SugaredLogger.With(keysAndValues...),
	}
}

type httpErrorLog struct {
	log *Logger
}

func (h *httpErrorLog) Write(p []byte) (int, error) {
	m := strings.TrimSpace(string(p))

	// Noise caused by misbehaving clients
	if strings.HasPrefix(m, "http: URL query contains semicolon") || strings.Contains(m, "TLS handshake error") {
		h.log.Debug(m)
	} else {
		h.log.Error(m)
	}

	return len(p), nil
}

// NewHTTPErrorLog returns a stdlib logger for http.Server.ErrorLog that writes to the logger
func NewHTTPErrorLog(logger *Logger) *stdlog.Logger {
	return stdlog.New(&httpErrorLog{logger}, "", 0)
}
