package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	pricingapp "opalestay/internal/app/handlers/pricing"
	"opalestay/internal/app/queries"
)

type PricingHTTP interface {
	PriceForDate(c *gin.Context)
	PriceForRange(c *gin.Context)
	ListRules(c *gin.Context)
	CreateRule(c *gin.Context)
	UpdateRule(c *gin.Context)
	DeleteRule(c *gin.Context)
	ToggleRule(c *gin.Context)
}

type PricingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type priceRuleRequest struct {
	Name          string `json:"name"`
	Start         string `json:"start"`
	End           string `json:"end"`
	PricePerNight int64  `json:"price_per_night"`
	Currency      string `json:"currency"`
	Active        *bool  `json:"active"`
	Priority      int    `json:"priority"`
}

func (r priceRuleRequest) fields() pricingapp.RuleFields {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return pricingapp.RuleFields{
		Name:          strings.TrimSpace(r.Name),
		Start:         strings.TrimSpace(r.Start),
		End:           strings.TrimSpace(r.End),
		PricePerNight: r.PricePerNight,
		Currency:      strings.ToUpper(strings.TrimSpace(r.Currency)),
		Active:        active,
		Priority:      r.Priority,
	}
}

func (h PricingHandler) PriceForDate(c *gin.Context) {
	q := pricingapp.PriceForDateQuery{Property: c.Param("property"), Date: strings.TrimSpace(c.Query("date"))}
	res, err := queries.Ask[pricingapp.PriceForDateQuery, dto.NightPrice](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h PricingHandler) PriceForRange(c *gin.Context) {
	q := pricingapp.PriceForRangeQuery{
		Property: c.Param("property"),
		Start:    strings.TrimSpace(c.Query("start")),
		End:      strings.TrimSpace(c.Query("end")),
	}
	res, err := queries.Ask[pricingapp.PriceForRangeQuery, dto.RangePrice](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h PricingHandler) ListRules(c *gin.Context) {
	q := pricingapp.ListPriceRulesQuery{Property: c.Param("property")}
	res, err := queries.Ask[pricingapp.ListPriceRulesQuery, dto.PriceRuleCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h PricingHandler) CreateRule(c *gin.Context) {
	var req priceRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := pricingapp.CreatePriceRuleCommand{Property: c.Param("property"), RuleFields: req.fields()}
	res, err := commands.Dispatch[pricingapp.CreatePriceRuleCommand, dto.PriceRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"rule": res})
}

func (h PricingHandler) UpdateRule(c *gin.Context) {
	var req priceRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := pricingapp.UpdatePriceRuleCommand{ID: strings.TrimSpace(c.Param("id")), RuleFields: req.fields()}
	res, err := commands.Dispatch[pricingapp.UpdatePriceRuleCommand, dto.PriceRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"rule": res})
}

func (h PricingHandler) DeleteRule(c *gin.Context) {
	cmd := pricingapp.DeletePriceRuleCommand{ID: strings.TrimSpace(c.Param("id"))}
	res, err := commands.Dispatch[pricingapp.DeletePriceRuleCommand, dto.PriceRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"rule": res})
}

func (h PricingHandler) ToggleRule(c *gin.Context) {
	cmd := pricingapp.TogglePriceRuleCommand{ID: strings.TrimSpace(c.Param("id"))}
	res, err := commands.Dispatch[pricingapp.TogglePriceRuleCommand, dto.PriceRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"rule": res})
}

var _ PricingHTTP = PricingHandler{}
