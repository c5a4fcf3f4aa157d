package logging

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var zapLevels = map[LogLevel]zapcore.Level{
	DebugLevel: zapcore.DebugLevel,
	InfoLevel:  zapcore.InfoLevel,
	WarnLevel:  zapcore.WarnLevel,
	ErrorLevel: zapcore.ErrorLevel,
}

// contextKeys are copied from a context onto log lines, in this order.
var contextKeys = []contextKey{eventIDKey, objectIDKey, messageIDKey}

// ZapAdapter is the Logger backed by a console-encoded zap core.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapLogger builds a logger writing to config.Output, or stdout when unset.
func NewZapLogger(config LogConfig) (Logger, error) {
	level, ok := zapLevels[config.Level]
	if !ok {
		level = zapcore.InfoLevel
	}

	var out io.Writer = os.Stdout
	if config.Output != nil {
		out = config.Output
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(config.TimeFormat)), zapcore.AddSync(out), level)

	logger := zap.New(core)
	if config.Prefix != "" {
		logger = logger.Named(config.Prefix)
	}
	return &ZapAdapter{logger: logger}, nil
}

func encoderConfig(timeFormat string) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.CallerKey = zapcore.OmitKey
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	if timeFormat != "" {
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	}
	return cfg
}

func (z *ZapAdapter) Debug(msg string, fields ...Field) { z.logger.Debug(msg, zapFields(fields)...) }
func (z *ZapAdapter) Info(msg string, fields ...Field)  { z.logger.Info(msg, zapFields(fields)...) }
func (z *ZapAdapter) Warn(msg string, fields ...Field)  { z.logger.Warn(msg, zapFields(fields)...) }

// Error logs msg with err under the "error" key. A nil err is left out.
func (z *ZapAdapter) Error(msg string, err error, fields ...Field) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	z.logger.Error(msg, zf...)
}

func (z *ZapAdapter) WithFields(fields ...Field) Logger {
	return z.with(zapFields(fields))
}

// WithContext attaches the event, object and message ids carried by ctx.
func (z *ZapAdapter) WithContext(ctx context.Context) Logger {
	var zf []zap.Field
	for _, key := range contextKeys {
		if value, ok := ctx.Value(key).(string); ok {
			zf = append(zf, zap.String(string(key), value))
		}
	}
	return z.with(zf)
}

// with returns z itself when there is nothing to add.
func (z *ZapAdapter) with(fields []zap.Field) Logger {
	if len(fields) == 0 {
		return z
	}
	return &ZapAdapter{logger: z.logger.With(fields...)}
}

func (z *ZapAdapter) Sync() error {
	return z.logger.Sync()
}

func zapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		zf = append(zf, zap.Any(field.Key, field.Value))
	}
	return zf
}
