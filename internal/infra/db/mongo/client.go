package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionBlockedPeriods = "blocked_periods"
	collectionBookings       = "bookings"
	collectionPriceRules     = "price_rules"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories filter on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		collectionBlockedPeriods: {
			{Keys: bson.D{{Key: "property", Value: 1}, {Key: "start", Value: 1}}},
			{Keys: bson.D{{Key: "property", Value: 1}, {Key: "end", Value: 1}}},
		},
		collectionBookings: {
			{Keys: bson.D{{Key: "property", Value: 1}, {Key: "status", Value: 1}, {Key: "check_in", Value: 1}}},
			{Keys: bson.D{{Key: "property", Value: 1}, {Key: "check_out", Value: 1}}},
		},
		collectionPriceRules: {
			{Keys: bson.D{{Key: "property", Value: 1}, {Key: "priority", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return mapError(err, nil)
		}
	}
	return nil
}
