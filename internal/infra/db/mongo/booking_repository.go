package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "opalestay/internal/domain/booking"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/domain/shared/money"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(collectionBookings)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, mapError(err, fmt.Errorf("%w: %s", domainbooking.ErrBookingNotFound, id))
	}
	return doc.toAggregate(), nil
}

// Save upserts on the loaded version; a stale version ends up as a duplicate _id insert.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return failure.Conflict("mongo: booking %s was modified concurrently", b.ID)
		}
		return mapError(err, nil)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return failure.Conflict("mongo: booking %s was modified concurrently", b.ID)
	}
	b.Version = doc.Version
	return nil
}

// FindOverlapping is the strict overlap: check_in < q.check_out and check_out > q.check_in.
func (r *BookingRepository) FindOverlapping(ctx context.Context, key property.Key, q daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"property":  string(key),
		"status":    bson.M{"$in": statusStrings(statuses)},
		"check_in":  bson.M{"$lt": daterange.Day(q.CheckOut)},
		"check_out": bson.M{"$gt": daterange.Day(q.CheckIn)},
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListActiveFrom(ctx context.Context, key property.Key, day time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"property":  string(key),
		"status":    bson.M{"$in": statusStrings(domainbooking.ActiveStatuses)},
		"check_out": bson.M{"$gte": daterange.Day(day)},
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListByProperty(ctx context.Context, key property.Key, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := bson.M{"property": string(key)}
	if status != "" {
		filter["status"] = string(status)
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err, nil)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapError(err, nil)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type bookingDocument struct {
	ID         string                 `bson:"_id"`
	Property   string                 `bson:"property"`
	Guest      domainbooking.Guest    `bson:"guest"`
	CheckIn    time.Time              `bson:"check_in"`
	CheckOut   time.Time              `bson:"check_out"`
	Status     string                 `bson:"status"`
	Nightly    []nightlyPriceDocument `bson:"nightly"`
	Price      money.Money            `bson:"price"`
	Total      money.Money            `bson:"total"`
	PaymentRef string                 `bson:"payment_ref,omitempty"`
	Reason     string                 `bson:"reason,omitempty"`
	CreatedAt  time.Time              `bson:"created_at"`
	UpdatedAt  time.Time              `bson:"updated_at"`
	Version    int64                  `bson:"version"`
}

type nightlyPriceDocument struct {
	Date  time.Time   `bson:"date"`
	Price money.Money `bson:"price"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	nightly := make([]nightlyPriceDocument, 0, len(b.Nightly))
	for _, n := range b.Nightly {
		nightly = append(nightly, nightlyPriceDocument{Date: daterange.Day(n.Date), Price: n.Price})
	}
	return bookingDocument{
		ID:         string(b.ID),
		Property:   string(b.Property),
		Guest:      b.Guest,
		CheckIn:    daterange.Day(b.Range.CheckIn),
		CheckOut:   daterange.Day(b.Range.CheckOut),
		Status:     string(b.Status),
		Nightly:    nightly,
		Price:      b.Price,
		Total:      b.Total,
		PaymentRef: b.PaymentRef,
		Reason:     b.Reason,
		CreatedAt:  b.CreatedAt.UTC(),
		UpdatedAt:  b.UpdatedAt.UTC(),
		Version:    b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	nightly := make([]domainbooking.NightlyPrice, 0, len(d.Nightly))
	for _, n := range d.Nightly {
		nightly = append(nightly, domainbooking.NightlyPrice{Date: utcDay(n.Date), Price: n.Price})
	}
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		Property:   property.Key(d.Property),
		Guest:      d.Guest,
		Range:      daterange.DateRange{CheckIn: utcDay(d.CheckIn), CheckOut: utcDay(d.CheckOut)},
		Status:     domainbooking.Status(d.Status),
		Nightly:    nightly,
		Price:      d.Price,
		Total:      d.Total,
		PaymentRef: d.PaymentRef,
		Reason:     d.Reason,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
		Version:    d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
