package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider names the analysis backend (service or gemini).
	FieldProvider = "provider"
	// FieldModel is the generative model identifier, when one is used.
	FieldModel = "model"
	// FieldRequestID correlates log entries of one pipeline run.
	FieldRequestID = "request_id"
	// FieldStage is the pipeline state a log entry was written in.
	FieldStage = "stage"
	// FieldContext is the isolated context (page, background, popup) that logs.
	FieldContext = "context"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and omitting entries with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes the analysis backend.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// PipelineFields tags entries of a single pipeline run.
func PipelineFields(requestID, stage string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRequestID, Value: requestID},
		StringField{Key: FieldStage, Value: stage},
	)
}

// ForContext returns the logger used inside the named isolated context.
func ForContext(logger *zap.Logger, name string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldContext, Value: name})...)
}
