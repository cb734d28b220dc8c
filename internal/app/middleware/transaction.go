package middleware

import (
	"context"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/queries"
	"opalestay/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// QueryTxOptionsProvider picks the unit a query reads through. ReadOnly is always forced.
type QueryTxOptionsProvider func(q queries.Query) uow.TxOptions

// Transaction binds a unit of work to the command context. The unit commits when the
// handler succeeds and rolls back on any error, so a command never leaves half of its
// writes behind.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			opts.ReadOnly = false
			_, execCtx, finish, err := uow.Begin(ctx, factory, opts)
			if err != nil {
				return nil, err
			}
			res, err := nextFn(execCtx, cmd)
			if err = finish(err); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

// QueryTransaction runs a query inside one read-only unit, so every handler and
// service it calls reads through the same unit. Queries implementing
// queries.SnapshotReader get a snapshot unit unless optsProvider decides otherwise.
func QueryTransaction(factory uow.UoWFactory, optsProvider QueryTxOptionsProvider) QueryMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if optsProvider == nil {
		optsProvider = snapshotWhenAsked
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			opts := optsProvider(q)
			opts.ReadOnly = true
			_, execCtx, finish, err := uow.Begin(ctx, factory, opts)
			if err != nil {
				return nil, err
			}
			res, err := nextFn(execCtx, q)
			if err = finish(err); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

func snapshotWhenAsked(q queries.Query) uow.TxOptions {
	if sr, ok := q.(queries.SnapshotReader); ok && sr.SnapshotRead() {
		return uow.ReadSnapshot()
	}
	return uow.TxOptions{ReadOnly: true}
}
