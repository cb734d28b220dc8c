package middleware

import (
	"context"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/outbox"
)

// OutboxFlush hands the events recorded by a successful command to the outbox.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if flushErr := box.Flush(ctx); flushErr != nil {
				return nil, flushErr
			}
			return res, nil
		})
	}
}
