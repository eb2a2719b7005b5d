package loggercontext

import (
	"context"

	"github.com/arashthr/shelf/internal/logging"
	"go.uber.org/zap"
)

type key string

const loggerKey key = "loggerKey"

func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request scoped logger, or the process logger when the
// request did not pass through the logger middleware (CLI, tests).
func Logger(ctx context.Context) *zap.SugaredLogger {
	logger, ok := ctx.Value(loggerKey).(*zap.SugaredLogger)
	if !ok {
		return logging.Logger
	}
	return logger
}
