package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincalendar "opalestay/internal/domain/calendar"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
)

type BlockedPeriodRepository struct {
	col *mongo.Collection
}

func NewBlockedPeriodRepository(db *mongo.Database) *BlockedPeriodRepository {
	return &BlockedPeriodRepository{col: db.Collection(collectionBlockedPeriods)}
}

func (r *BlockedPeriodRepository) ByID(ctx context.Context, id domaincalendar.PeriodID) (*domaincalendar.BlockedPeriod, error) {
	var doc blockedPeriodDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, mapError(err, fmt.Errorf("%w: %s", domaincalendar.ErrPeriodNotFound, id))
	}
	return doc.toAggregate(), nil
}

// FindOverlapping translates the closed-interval overlap into start <= q.end and
// end >= q.start.
func (r *BlockedPeriodRepository) FindOverlapping(ctx context.Context, key property.Key, q daterange.Closed) ([]*domaincalendar.BlockedPeriod, error) {
	filter := bson.M{
		"property": string(key),
		"start":    bson.M{"$lte": daterange.Day(q.End)},
		"end":      bson.M{"$gte": daterange.Day(q.Start)},
	}
	return r.find(ctx, filter)
}

func (r *BlockedPeriodRepository) ListFrom(ctx context.Context, key property.Key, day time.Time) ([]*domaincalendar.BlockedPeriod, error) {
	filter := bson.M{"property": string(key)}
	if !day.IsZero() {
		filter["end"] = bson.M{"$gte": daterange.Day(day)}
	}
	return r.find(ctx, filter)
}

func (r *BlockedPeriodRepository) Insert(ctx context.Context, p *domaincalendar.BlockedPeriod) error {
	if p == nil {
		return failure.Validation("mongo: nil blocked period")
	}
	if err := p.Range.Validate(); err != nil {
		return err
	}
	_, err := r.col.InsertOne(ctx, newBlockedPeriodDocument(p))
	if mongo.IsDuplicateKeyError(err) {
		return failure.Conflict("mongo: blocked period %s already exists", p.ID)
	}
	return mapError(err, nil)
}

func (r *BlockedPeriodRepository) DeleteByID(ctx context.Context, id domaincalendar.PeriodID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return mapError(err, nil)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", domaincalendar.ErrPeriodNotFound, id)
	}
	return nil
}

func (r *BlockedPeriodRepository) DeleteMany(ctx context.Context, f domaincalendar.Filter) (int, error) {
	filter := bson.M{}
	if f.Property != "" {
		filter["property"] = string(f.Property)
	}
	if len(f.IDs) > 0 {
		ids := make([]string, 0, len(f.IDs))
		for _, id := range f.IDs {
			ids = append(ids, string(id))
		}
		filter["_id"] = bson.M{"$in": ids}
	}
	if f.Within != nil {
		filter["start"] = bson.M{"$gte": daterange.Day(f.Within.Start)}
		filter["end"] = bson.M{"$lte": daterange.Day(f.Within.End)}
	}
	res, err := r.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, mapError(err, nil)
	}
	return int(res.DeletedCount), nil
}

func (r *BlockedPeriodRepository) find(ctx context.Context, filter bson.M) ([]*domaincalendar.BlockedPeriod, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err, nil)
	}
	var docs []blockedPeriodDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapError(err, nil)
	}
	out := make([]*domaincalendar.BlockedPeriod, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type blockedPeriodDocument struct {
	ID        string    `bson:"_id"`
	Property  string    `bson:"property"`
	Start     time.Time `bson:"start"`
	End       time.Time `bson:"end"`
	Reason    string    `bson:"reason"`
	CreatedAt time.Time `bson:"created_at"`
}

func newBlockedPeriodDocument(p *domaincalendar.BlockedPeriod) blockedPeriodDocument {
	return blockedPeriodDocument{
		ID:        string(p.ID),
		Property:  string(p.Property),
		Start:     daterange.Day(p.Range.Start),
		End:       daterange.Day(p.Range.End),
		Reason:    p.Reason,
		CreatedAt: p.CreatedAt.UTC(),
	}
}

// toAggregate does not validate: inconsistent rows are reported by the expansion.
func (d blockedPeriodDocument) toAggregate() *domaincalendar.BlockedPeriod {
	return &domaincalendar.BlockedPeriod{
		ID:        domaincalendar.PeriodID(d.ID),
		Property:  property.Key(d.Property),
		Range:     daterange.Closed{Start: utcDay(d.Start), End: utcDay(d.End)},
		Reason:    d.Reason,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func utcDay(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return daterange.Day(t)
}

var _ domaincalendar.Repository = (*BlockedPeriodRepository)(nil)
