package booking

import (
	"context"
	"log/slog"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	"opalestay/internal/app/policies"
)

const bookingActionKey = "booking.action"

// BookingActionCommand carries a signed one-click link token.
type BookingActionCommand struct {
	Token string `validate:"required"`
}

func (c BookingActionCommand) Key() string { return bookingActionKey }

// BookingActionHandler verifies a link token and applies the action it names.
type BookingActionHandler struct {
	Tokens      policies.ActionTokens
	Transitions *TransitionsHandler
	Logger      *slog.Logger
}

func (h *BookingActionHandler) Handle(ctx context.Context, cmd BookingActionCommand) (dto.Booking, error) {
	claims, err := h.Tokens.Verify(cmd.Token)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WarnContext(ctx, "booking action link rejected", "error", err)
		}
		return dto.Booking{}, err
	}
	switch claims.Action {
	case policies.ActionAccept:
		return h.Transitions.Accept(ctx, AcceptBookingCommand{ID: claims.BookingID})
	case policies.ActionRefuse:
		return h.Transitions.Refuse(ctx, RefuseBookingCommand{ID: claims.BookingID, Reason: "refused from notification link"})
	}
	return dto.Booking{}, policies.ErrInvalidActionToken
}

var _ commands.Handler[BookingActionCommand, dto.Booking] = (*BookingActionHandler)(nil)
