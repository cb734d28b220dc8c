package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"opalestay/internal/app/dto"
	"opalestay/internal/app/uow"
	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/money"
)

const (
	listPriceRulesKey  = "pricing.rules.list"
	createPriceRuleKey = "pricing.rules.create"
	updatePriceRuleKey = "pricing.rules.update"
	deletePriceRuleKey = "pricing.rules.delete"
	togglePriceRuleKey = "pricing.rules.toggle"
)

type ListPriceRulesQuery struct {
	Property string `validate:"required"`
}

func (q ListPriceRulesQuery) Key() string { return listPriceRulesKey }

// RuleFields are the editable fields of a price rule.
type RuleFields struct {
	Name          string `validate:"required,max=120"`
	Start         string `validate:"required,isodate"`
	End           string `validate:"required,isodate"`
	PricePerNight int64  `validate:"gt=0"`
	Currency      string `validate:"omitempty,len=3"`
	Active        bool
	Priority      int `validate:"gte=0"`
}

type CreatePriceRuleCommand struct {
	Property string `validate:"required"`
	RuleFields
}

func (c CreatePriceRuleCommand) Key() string { return createPriceRuleKey }

type UpdatePriceRuleCommand struct {
	ID string `validate:"required"`
	RuleFields
}

func (c UpdatePriceRuleCommand) Key() string { return updatePriceRuleKey }

type DeletePriceRuleCommand struct {
	ID string `validate:"required"`
}

func (c DeletePriceRuleCommand) Key() string { return deletePriceRuleKey }

type TogglePriceRuleCommand struct {
	ID string `validate:"required"`
}

func (c TogglePriceRuleCommand) Key() string { return togglePriceRuleKey }

// RulesHandler serves every price rule command and the listing query. Results carry the
// rule's property so the cache middleware can invalidate it.
type RulesHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
	NewID      func() string
	Logger     *slog.Logger
}

func (h *RulesHandler) List(ctx context.Context, q ListPriceRulesQuery) (dto.PriceRuleCollection, error) {
	key, err := property.Parse(q.Property)
	if err != nil {
		return dto.PriceRuleCollection{}, err
	}
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.PriceRuleCollection{}, err
	}
	rules, err := unit.PriceRules().ListByProperty(execCtx, key)
	if err = finish(err); err != nil {
		return dto.PriceRuleCollection{}, err
	}
	domainpricing.SortByRank(rules)
	return dto.PriceRuleCollection{Property: string(key), Items: dto.MapPriceRules(rules)}, nil
}

func (h *RulesHandler) Create(ctx context.Context, cmd CreatePriceRuleCommand) (dto.PriceRule, error) {
	key, err := property.Parse(cmd.Property)
	if err != nil {
		return dto.PriceRule{}, err
	}
	params, err := h.params(cmd.RuleFields)
	if err != nil {
		return dto.PriceRule{}, err
	}
	params.Property = key
	params.ID = domainpricing.RuleID(h.newID())
	rule, err := domainpricing.NewRule(params)
	if err != nil {
		return dto.PriceRule{}, err
	}
	if err := h.save(ctx, rule); err != nil {
		return dto.PriceRule{}, err
	}
	h.log(ctx, "price rule created", rule)
	return dto.MapPriceRule(rule), nil
}

func (h *RulesHandler) Update(ctx context.Context, cmd UpdatePriceRuleCommand) (dto.PriceRule, error) {
	params, err := h.params(cmd.RuleFields)
	if err != nil {
		return dto.PriceRule{}, err
	}
	rule, err := h.mutate(ctx, domainpricing.RuleID(cmd.ID), func(r *domainpricing.Rule) error {
		return r.Update(params)
	})
	if err != nil {
		return dto.PriceRule{}, err
	}
	h.log(ctx, "price rule updated", rule)
	return dto.MapPriceRule(rule), nil
}

func (h *RulesHandler) Toggle(ctx context.Context, cmd TogglePriceRuleCommand) (dto.PriceRule, error) {
	rule, err := h.mutate(ctx, domainpricing.RuleID(cmd.ID), func(r *domainpricing.Rule) error {
		r.Toggle(h.now())
		return nil
	})
	if err != nil {
		return dto.PriceRule{}, err
	}
	h.log(ctx, "price rule toggled", rule)
	return dto.MapPriceRule(rule), nil
}

func (h *RulesHandler) Delete(ctx context.Context, cmd DeletePriceRuleCommand) (dto.PriceRule, error) {
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.PriceRule{}, err
	}
	id := domainpricing.RuleID(cmd.ID)
	rule, err := unit.PriceRules().ByID(execCtx, id)
	if err == nil {
		err = unit.PriceRules().Delete(execCtx, id)
	}
	if err = finish(err); err != nil {
		return dto.PriceRule{}, err
	}
	h.log(ctx, "price rule deleted", rule)
	return dto.MapPriceRule(rule), nil
}

func (h *RulesHandler) mutate(ctx context.Context, id domainpricing.RuleID, change func(*domainpricing.Rule) error) (*domainpricing.Rule, error) {
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	rule, err := unit.PriceRules().ByID(execCtx, id)
	if err == nil {
		err = change(rule)
	}
	if err == nil {
		err = unit.PriceRules().Save(execCtx, rule)
	}
	if err = finish(err); err != nil {
		return nil, err
	}
	return rule, nil
}

func (h *RulesHandler) save(ctx context.Context, rule *domainpricing.Rule) error {
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return err
	}
	return finish(unit.PriceRules().Save(execCtx, rule))
}

func (h *RulesHandler) params(f RuleFields) (domainpricing.RuleParams, error) {
	r, err := daterange.ParseClosed(f.Start, f.End)
	if err != nil {
		return domainpricing.RuleParams{}, err
	}
	currency := f.Currency
	if currency == "" {
		currency = money.EUR
	}
	price, err := money.New(f.PricePerNight, currency)
	if err != nil {
		return domainpricing.RuleParams{}, err
	}
	return domainpricing.RuleParams{
		Name:          f.Name,
		Range:         r,
		PricePerNight: price,
		Active:        f.Active,
		Priority:      f.Priority,
		Now:           h.now(),
	}, nil
}

func (h *RulesHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

func (h *RulesHandler) newID() string {
	if h.NewID == nil {
		return uuid.NewString()
	}
	return h.NewID()
}

func (h *RulesHandler) log(ctx context.Context, msg string, rule *domainpricing.Rule) {
	if h.Logger == nil || rule == nil {
		return
	}
	h.Logger.InfoContext(ctx, msg, "rule_id", rule.ID, "property", rule.Property, "active", rule.Active, "priority", rule.Priority)
}
