package middleware

import (
	"context"
	"log/slog"
	"time"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/outbox"
	"opalestay/internal/app/policies"
	"opalestay/internal/app/queries"
	"opalestay/internal/app/uow"
)

type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// CommandStack holds what the command pipeline needs. Validator, Idempotency and Prices
// are optional; a nil one drops its stage.
type CommandStack struct {
	Logger      *slog.Logger
	Validator   Validator
	Idempotency IdempotencyStore
	Outbox      outbox.Outbox
	Prices      policies.PriceInvalidator
	UoW         uow.UoWFactory
	TxOptions   TxOptionsProvider
	Now         func() time.Time
}

// Wrap builds the command bus. Stages run outermost first:
//
//	logging > validation > idempotency > outbox flush > price cache > transaction
//
// Events leave and cached prices are dropped only once the transaction committed, and
// an idempotent replay skips all of it.
func (s CommandStack) Wrap(base commands.Bus) commands.Bus {
	mws := []CommandMiddleware{CommandLogging(s.Logger)}
	if s.Validator != nil {
		mws = append(mws, Validation(s.Validator))
	}
	if s.Idempotency != nil {
		mws = append(mws, Idempotency(s.Idempotency, nil, s.Now))
	}
	mws = append(mws, OutboxFlush(s.Outbox))
	if s.Prices != nil {
		mws = append(mws, PriceCacheInvalidation(s.Prices, s.Logger))
	}
	mws = append(mws, Transaction(s.UoW, s.TxOptions))
	return ChainCommands(base, mws...)
}

// QueryStack holds what the query pipeline needs.
type QueryStack struct {
	Logger    *slog.Logger
	Validator Validator
	UoW       uow.UoWFactory
	TxOptions QueryTxOptionsProvider
}

// Wrap builds the query bus: logging, validation, then one read-only unit per query.
func (s QueryStack) Wrap(base queries.Bus) queries.Bus {
	mws := []QueryMiddleware{QueryLogging(s.Logger)}
	if s.Validator != nil {
		mws = append(mws, QueryValidation(s.Validator))
	}
	mws = append(mws, QueryTransaction(s.UoW, s.TxOptions))
	return ChainQueries(base, mws...)
}

// ChainCommands builds a command bus wrapped with the provided middleware (outermost first).
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// ChainQueries builds a query bus with middleware applied.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func wrapCommand(next commands.Bus) commandFunc {
	return func(ctx context.Context, cmd commands.Command) (any, error) {
		return next.Dispatch(ctx, cmd)
	}
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

func wrapQuery(next queries.Bus) queryFunc {
	return func(ctx context.Context, q queries.Query) (any, error) {
		return next.Ask(ctx, q)
	}
}
