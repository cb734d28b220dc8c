package uow

import (
	"context"
	"errors"
)

type ctxKey struct{}

// ContextWithUnitOfWork stores the provided unit of work in context.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// Begin returns the unit already bound to ctx, or starts one from factory. The returned
// finish func must be called with the handler error; it commits a unit it started when
// err is nil and rolls it back otherwise. For a unit found in ctx, finish is a no-op and
// the caller owning it decides.
func Begin(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, func(err error) error, error) {
	if unit, ok := FromContext(ctx); ok {
		return unit, ctx, func(err error) error { return err }, nil
	}
	if factory == nil {
		return nil, ctx, nil, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = ContextWithUnitOfWork(execCtx, unit)
	finish := func(err error) error {
		if err != nil || opts.ReadOnly {
			if rbErr := unit.Rollback(execCtx); rbErr != nil && err != nil {
				return errors.Join(err, rbErr)
			}
			return err
		}
		return unit.Commit(execCtx)
	}
	return unit, execCtx, finish, nil
}
