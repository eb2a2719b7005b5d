package logging

import (
	"github.com/arashthr/shelf/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process wide logger. It is replaced by Init.
	Logger *zap.SugaredLogger = DefaultLogger
	// DefaultLogger is used before Init runs and when no request logger is in the context.
	DefaultLogger *zap.SugaredLogger = zap.NewExample().Sugar()
)

func Init(cfg *config.AppConfig) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if level, err := zapcore.ParseLevel(cfg.Logging.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Logging.LogFile != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.Logging.LogFile)
	}

	base, err := zapCfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		DefaultLogger.Errorw("building logger failed, keeping default", "error", err)
		return
	}
	Logger = base.Sugar()
}

// Sync flushes buffered entries. Errors are ignored since stdout and
// stderr report EINVAL on sync in most terminals.
func Sync() {
	_ = Logger.Sync()
}
