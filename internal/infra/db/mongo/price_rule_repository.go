package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/money"
)

type PriceRuleRepository struct {
	col *mongo.Collection
}

func NewPriceRuleRepository(db *mongo.Database) *PriceRuleRepository {
	return &PriceRuleRepository{col: db.Collection(collectionPriceRules)}
}

func (r *PriceRuleRepository) ByID(ctx context.Context, id domainpricing.RuleID) (*domainpricing.Rule, error) {
	var doc priceRuleDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, mapError(err, fmt.Errorf("%w: %s", domainpricing.ErrRuleNotFound, id))
	}
	return doc.toAggregate(), nil
}

func (r *PriceRuleRepository) ListByProperty(ctx context.Context, key property.Key) ([]*domainpricing.Rule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"property": string(key)}, opts)
	if err != nil {
		return nil, mapError(err, nil)
	}
	var docs []priceRuleDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapError(err, nil)
	}
	out := make([]*domainpricing.Rule, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *PriceRuleRepository) Save(ctx context.Context, rule *domainpricing.Rule) error {
	doc := newPriceRuleDocument(rule)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return mapError(err, nil)
}

func (r *PriceRuleRepository) Delete(ctx context.Context, id domainpricing.RuleID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return mapError(err, nil)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", domainpricing.ErrRuleNotFound, id)
	}
	return nil
}

type priceRuleDocument struct {
	ID            string      `bson:"_id"`
	Property      string      `bson:"property"`
	Name          string      `bson:"name"`
	Start         time.Time   `bson:"start"`
	End           time.Time   `bson:"end"`
	PricePerNight money.Money `bson:"price_per_night"`
	Active        bool        `bson:"active"`
	Priority      int         `bson:"priority"`
	CreatedAt     time.Time   `bson:"created_at"`
	UpdatedAt     time.Time   `bson:"updated_at"`
}

func newPriceRuleDocument(r *domainpricing.Rule) priceRuleDocument {
	return priceRuleDocument{
		ID:            string(r.ID),
		Property:      string(r.Property),
		Name:          r.Name,
		Start:         daterange.Day(r.Range.Start),
		End:           daterange.Day(r.Range.End),
		PricePerNight: r.PricePerNight,
		Active:        r.Active,
		Priority:      r.Priority,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (d priceRuleDocument) toAggregate() *domainpricing.Rule {
	return &domainpricing.Rule{
		ID:            domainpricing.RuleID(d.ID),
		Property:      property.Key(d.Property),
		Name:          d.Name,
		Range:         daterange.Closed{Start: utcDay(d.Start), End: utcDay(d.End)},
		PricePerNight: d.PricePerNight,
		Active:        d.Active,
		Priority:      d.Priority,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

var _ domainpricing.Repository = (*PriceRuleRepository)(nil)
