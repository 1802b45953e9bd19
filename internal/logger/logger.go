package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MessageKey names the message field; every log line reads as a pipeline step.
const MessageKey = "step"

// Options select the log format. Output defaults to stderr so that command
// output on stdout stays machine readable.
type Options struct {
	JSON   bool
	Debug  bool
	Output string
}

func New(opts Options) (*zap.Logger, error) {
	logger, err := newConfig(opts).Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	return logger, nil
}

func newConfig(opts Options) zap.Config {
	level := zapcore.InfoLevel
	encoding := "console"

	if opts.JSON {
		encoding = "json"
	}

	if opts.Debug {
		level = zapcore.DebugLevel
	}

	output := opts.Output
	if output == "" {
		output = "stderr"
	}

	return zap.Config{
		Encoding:          encoding,
		Level:             zap.NewAtomicLevelAt(level),
		DisableStacktrace: !opts.Debug,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: MessageKey,

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			// Named loggers, such as the bus, show up under this key.
			NameKey: "logger",

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
}
