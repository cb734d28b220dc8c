package middleware

import (
	"context"
	"fmt"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/queries"
	"opalestay/internal/domain/shared/failure"
)

// Validator checks the tagged fields of a command or query.
type Validator interface {
	Validate(ctx context.Context, message any) error
}

// Checker is implemented by messages with rules spanning several fields, such as a date
// range whose end must not precede its start. Check runs after the field validation.
type Checker interface {
	Check() error
}

// Validation rejects invalid commands before a unit of work is opened.
func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := validate(ctx, v, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := validate(ctx, v, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}

// validate reports every rejection as failure.ErrValidation, keeping a kind the
// validator or the message already chose.
func validate(ctx context.Context, v Validator, msg any) error {
	err := v.Validate(ctx, msg)
	if err == nil {
		if c, ok := msg.(Checker); ok {
			err = c.Check()
		}
	}
	if err == nil || failure.Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", failure.ErrValidation, err)
}
