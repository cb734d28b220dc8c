package middleware

import (
	"context"
	"log/slog"
	"time"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/queries"
	"opalestay/internal/domain/shared/failure"
)

// CommandLogging logs every dispatched command with its outcome.
func CommandLogging(logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

// QueryLogging logs failed queries; successful reads are too frequent to log at info.
func QueryLogging(logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			if err != nil {
				logOutcome(ctx, logger, "query", q.Key(), time.Since(start), err)
			}
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, took time.Duration, err error) {
	if logger == nil {
		return
	}
	if err == nil {
		logger.InfoContext(ctx, kind+" handled", "key", key, "duration", took)
		return
	}
	level := slog.LevelError
	switch failure.Kind(err) {
	case failure.ErrValidation, failure.ErrConflict, failure.ErrNotFound:
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, kind+" failed", "key", key, "duration", took, "error", err)
}
