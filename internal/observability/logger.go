package observability

import (
	"fmt"
	"strings"

	"github.com/upb/governed-notebook/config"
	"github.com/upb/governed-notebook/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field represents a structured log field.
type Field = zap.Field

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// Logs go to stderr so cell output on stdout stays clean.
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zcfg zap.Config
	switch cfg.LogFormat {
	case "console", "text":
		zcfg = zap.NewDevelopmentConfig()
	default:
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// SessionFields are attached to every log line emitted on behalf of a session
func SessionFields(session models.SessionContext) []Field {
	return []Field{
		zap.String("username", session.Username),
		zap.String("session_id", session.SessionName),
	}
}

// ForSession scopes a logger to a session
func ForSession(logger *zap.Logger, session models.SessionContext) *zap.Logger {
	return logger.With(SessionFields(session)...)
}
