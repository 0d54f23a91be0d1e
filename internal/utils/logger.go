package utils

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the logging surface used by the HTTP layer
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger to Logger
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func (l *slogLogger) Slog() *slog.Logger { return l.logger }

const contextLoggerKey = "logger"

// ContextLogger stores a request-scoped logger carrying the request id
func ContextLogger(base Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := base
		if requestID, ok := c.Get("request_id"); ok {
			logger = base.With("request_id", requestID)
		}
		c.Set(contextLoggerKey, logger)
		c.Next()
	}
}

// GetLogger returns the request-scoped logger, or fallback when none is set
func GetLogger(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(contextLoggerKey); ok {
		if logger, ok := v.(Logger); ok {
			return logger
		}
	}
	return fallback
}

// LoggerMiddleware logs one line per request once the handler chain returns
func LoggerMiddleware(base Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger := GetLogger(c, base)
		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("Request completed", args...)
		case status >= 400:
			logger.Warn("Request completed", args...)
		default:
			logger.Info("Request completed", args...)
		}
	}
}
