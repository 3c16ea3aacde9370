package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar names the level to use when none is passed to Initialize.
// Unset or empty means no output at all.
const LogLevelEnvVar = "FRESHPOTS_LOG_LEVEL"

// maxDumpBytes caps how much of a payload is rendered by LogRawBytes.
const maxDumpBytes = 256

var logger atomic.Pointer[zap.Logger]

// Initialize installs a console logger at level, falling back to
// FRESHPOTS_LOG_LEVEL. With neither set the logger is a no-op.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		SetLogger(zap.NewNop())
		return nil
	}

	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeCaller = zapcore.ShortCallerEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Encoding:         "console",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(l)
	return nil
}

// ParseLevel maps a level name to a zap level. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// SetLogger replaces the global logger; nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

// GetLogger returns the global logger, a no-op one until Initialize runs.
func GetLogger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	nop := zap.NewNop()
	if logger.CompareAndSwap(nil, nop) {
		return nop
	}
	return logger.Load()
}

func Info(msg string, fields ...zap.Field) { GetLogger().Info(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// LogConnection logs a TCP or WebSocket peer coming or going.
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogDiscovery logs an mDNS lifecycle event (browsing, found, resolved, lost).
func LogDiscovery(event string, instance string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("event", event),
		zap.String("instance", instance),
	}, fields...)
	Info("Discovery event", fields...)
}

// LogTransaction logs one request/response exchange with the pot: debug
// when it worked, warn with the cause when it did not.
func LogTransaction(endpoint string, request string, response string, cause error) {
	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.String("request", request),
		zap.String("response", response),
	}
	if cause != nil {
		Warn("Transaction failed", append(fields, zap.Error(cause))...)
		return
	}
	Debug("Transaction complete", fields...)
}

// LogWebSocketMessage logs a bridge message; direction is "rx" or "tx".
func LogWebSocketMessage(remoteAddr string, direction string, data []byte) {
	Debug("WebSocket message",
		zap.String("remote_addr", remoteAddr),
		zap.String("direction", direction),
		zap.ByteString("content", data),
	)
}

// LogRawBytes logs a wire payload as hex and printable ASCII at debug level.
func LogRawBytes(label string, data []byte) {
	l := GetLogger()
	if !l.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	l.Debug(label, zap.Object("bytes", wireBytes(data)))
}

// wireBytes renders a payload for LogRawBytes.
type wireBytes []byte

func (b wireBytes) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("length", len(b))
	enc.AddString("hex", hexDump(b))
	enc.AddString("ascii", asciiDump(b))
	return nil
}

func hexDump(data []byte) string {
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) > maxDumpBytes {
		data = data[:maxDumpBytes]
	}
	out := make([]byte, len(data))
	for i, c := range data {
		if c < 32 || c > 126 {
			c = '.'
		}
		out[i] = c
	}
	return string(out)
}

// Sync flushes buffered entries.
func Sync() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}
