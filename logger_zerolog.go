package async

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologAdapter bridges a zerolog.Logger to the Logger contract, for hosts
// already standardized on zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter wraps zl as a Logger.
func NewZerologAdapter(zl zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: zl}
}

func (a *ZerologAdapter) Trace(msg string, args ...any) { a.logger.Trace().Msgf(msg, args...) }
func (a *ZerologAdapter) Debug(msg string, args ...any) { a.logger.Debug().Msgf(msg, args...) }
func (a *ZerologAdapter) Info(msg string, args ...any)  { a.logger.Info().Msgf(msg, args...) }
func (a *ZerologAdapter) Warn(msg string, args ...any)  { a.logger.Warn().Msgf(msg, args...) }
func (a *ZerologAdapter) Error(msg string, args ...any) { a.logger.Error().Msgf(msg, args...) }
func (a *ZerologAdapter) Fatal(msg string, args ...any) { a.logger.Fatal().Msgf(msg, args...) }

func (a *ZerologAdapter) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return a
	}
	return &ZerologAdapter{logger: a.logger.With().Ctx(ctx).Logger()}
}

// WithFields adds structured fields on a copy of the adapter.
func (a *ZerologAdapter) WithFields(fields map[string]any) Logger {
	zctx := a.logger.With()
	for k, v := range fields {
		zctx = zctx.Interface(k, v)
	}
	return &ZerologAdapter{logger: zctx.Logger()}
}
