package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	bookingapp "opalestay/internal/app/handlers/booking"
	"opalestay/internal/app/queries"
)

type BookingHTTP interface {
	Request(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Accept(c *gin.Context)
	Refuse(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Action(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type guestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type stayRequest struct {
	Property string `json:"property"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type requestBookingsRequest struct {
	Guest guestRequest  `json:"guest"`
	Stays []stayRequest `json:"stays"`
}

type transitionRequest struct {
	Reason     string `json:"reason"`
	PaymentRef string `json:"payment_ref"`
}

func (h BookingHandler) Request(c *gin.Context) {
	var req requestBookingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.RequestBookingsCommand{
		Guest: bookingapp.GuestInput{
			Name:  strings.TrimSpace(req.Guest.Name),
			Email: strings.TrimSpace(req.Guest.Email),
			Phone: strings.TrimSpace(req.Guest.Phone),
		},
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	for _, s := range req.Stays {
		cmd.Stays = append(cmd.Stays, bookingapp.StayRequest{
			Property: strings.TrimSpace(s.Property),
			CheckIn:  strings.TrimSpace(s.CheckIn),
			CheckOut: strings.TrimSpace(s.CheckOut),
		})
	}
	res, err := commands.Dispatch[bookingapp.RequestBookingsCommand, *dto.Checkout](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusAccepted, res)
}

func (h BookingHandler) Get(c *gin.Context) {
	q := bookingapp.GetBookingQuery{ID: strings.TrimSpace(c.Param("id"))}
	res, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"booking": res})
}

func (h BookingHandler) List(c *gin.Context) {
	q := bookingapp.ListBookingsQuery{Property: c.Param("property"), Status: strings.TrimSpace(c.Query("status"))}
	res, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h BookingHandler) Accept(c *gin.Context) {
	cmd := bookingapp.AcceptBookingCommand{ID: strings.TrimSpace(c.Param("id"))}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.AcceptBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Refuse(c *gin.Context) {
	req, ok := bindOptional(c)
	if !ok {
		return
	}
	cmd := bookingapp.RefuseBookingCommand{ID: strings.TrimSpace(c.Param("id")), Reason: req.Reason}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.RefuseBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Confirm(c *gin.Context) {
	req, ok := bindOptional(c)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{ID: strings.TrimSpace(c.Param("id")), PaymentRef: req.PaymentRef}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.ConfirmBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	req, ok := bindOptional(c)
	if !ok {
		return
	}
	cmd := bookingapp.CancelBookingCommand{ID: strings.TrimSpace(c.Param("id")), Reason: req.Reason}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.CancelBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

// Action serves the one-click accept/refuse links sent to the owner.
func (h BookingHandler) Action(c *gin.Context) {
	cmd := bookingapp.BookingActionCommand{Token: c.Param("token")}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.BookingActionCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) transition(c *gin.Context, run func() (dto.Booking, error)) {
	res, err := run()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"booking": res})
}

func bindOptional(c *gin.Context) (transitionRequest, bool) {
	var req transitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return req, false
		}
	}
	req.Reason = strings.TrimSpace(req.Reason)
	req.PaymentRef = strings.TrimSpace(req.PaymentRef)
	return req, true
}

var _ BookingHTTP = BookingHandler{}
