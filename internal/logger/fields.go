package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/jobs"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"

	FieldJobID    = "job_id"
	FieldJobTitle = "job_title"
	FieldCompany  = "company"
	FieldRating   = "rating"
	FieldScore    = "score"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, skipping entries with an empty key or value.
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

// WithFields attaches fields to the logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes the AI provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// JobFields describes a job. Rating and score are included only when set.
func JobFields(job *jobs.Job) []zap.Field {
	if job == nil {
		return nil
	}

	fields := []zap.Field{zap.String(FieldJobID, job.ID.String())}
	fields = append(fields, StringFields(
		StringField{Key: FieldJobTitle, Value: job.Title},
		StringField{Key: FieldCompany, Value: job.Company},
	)...)

	if job.Rating != nil {
		fields = append(fields, zap.Float64(FieldRating, *job.Rating))
	}
	if job.Score != nil {
		fields = append(fields, zap.Int(FieldScore, *job.Score))
	}
	return fields
}
