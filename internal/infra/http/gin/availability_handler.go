package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	availabilityapp "opalestay/internal/app/handlers/availability"
	"opalestay/internal/app/queries"
)

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	DisabledDates(c *gin.Context)
	ListBlocked(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
	DeleteBlocked(c *gin.Context)
}

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type rangeRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	q := availabilityapp.CheckAvailabilityQuery{
		Property: c.Param("property"),
		Start:    strings.TrimSpace(c.Query("start")),
		End:      strings.TrimSpace(c.Query("end")),
	}
	res, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h AvailabilityHandler) DisabledDates(c *gin.Context) {
	q := availabilityapp.DisabledDatesQuery{Property: c.Param("property")}
	res, err := queries.Ask[availabilityapp.DisabledDatesQuery, dto.DisabledDates](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h AvailabilityHandler) ListBlocked(c *gin.Context) {
	q := availabilityapp.ListBlockedPeriodsQuery{Property: c.Param("property"), From: strings.TrimSpace(c.Query("from"))}
	res, err := queries.Ask[availabilityapp.ListBlockedPeriodsQuery, dto.BlockedPeriodCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h AvailabilityHandler) Block(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.BlockRangeCommand{
		Property: c.Param("property"),
		Start:    strings.TrimSpace(req.Start),
		End:      strings.TrimSpace(req.End),
		Reason:   strings.TrimSpace(req.Reason),
	}
	res, err := commands.Dispatch[availabilityapp.BlockRangeCommand, dto.BlockedPeriod](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"period": res})
}

func (h AvailabilityHandler) Unblock(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.UnblockRangeCommand{
		Property: c.Param("property"),
		Start:    strings.TrimSpace(req.Start),
		End:      strings.TrimSpace(req.End),
	}
	res, err := commands.Dispatch[availabilityapp.UnblockRangeCommand, *dto.UnblockResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h AvailabilityHandler) DeleteBlocked(c *gin.Context) {
	cmd := availabilityapp.DeleteBlockedPeriodCommand{ID: strings.TrimSpace(c.Param("id"))}
	res, err := commands.Dispatch[availabilityapp.DeleteBlockedPeriodCommand, dto.BlockedPeriod](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"period": res})
}

var _ AvailabilityHTTP = AvailabilityHandler{}
