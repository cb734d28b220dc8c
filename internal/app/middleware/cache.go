package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/policies"
)

// PriceCacheInvalidation drops cached prices of the property named by a successful
// command, or by its result when the command only knows a rule id. It runs after the
// transaction committed and before the caller sees the result.
func PriceCacheInvalidation(invalidator policies.PriceInvalidator, logger *slog.Logger) CommandMiddleware {
	if invalidator == nil {
		panic("middleware: price invalidator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return res, err
			}
			key := priceScope(cmd, res)
			if key == "" {
				return res, nil
			}
			if err := invalidator.InvalidateProperty(ctx, key); err != nil {
				return nil, fmt.Errorf("middleware: price cache invalidation for %s: %w", key, err)
			}
			if logger != nil {
				logger.Debug("price cache invalidated", "property", key, "command", cmd.Key())
			}
			return res, nil
		})
	}
}

func priceScope(cmd commands.Command, res any) string {
	if scoped, ok := cmd.(policies.PriceScoped); ok {
		if key := scoped.PriceScope(); key != "" {
			return key
		}
	}
	if scoped, ok := res.(policies.PriceScoped); ok {
		return scoped.PriceScope()
	}
	return ""
}
