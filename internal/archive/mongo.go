// Package archive keeps a copy of every closed-trip settlement in MongoDB.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"poultrytrade/backend/internal/trip"
)

const collection = "settlements"

type MongoArchive struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoArchive(ctx context.Context, uri, dbName string) (*MongoArchive, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoArchive{client: client, coll: client.Database(dbName).Collection(collection)}, nil
}

// Publish upserts the settlement keyed by trip, so a retried publish replaces
// the earlier document.
func (a *MongoArchive) Publish(ctx context.Context, s trip.Settlement) error {
	doc, err := settlementDocument(s)
	if err != nil {
		return err
	}
	_, err = a.coll.ReplaceOne(ctx,
		bson.M{"tenant_id": s.TenantID, "trip_id": s.TripID},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to archive settlement of trip %d: %w", s.TripID, err)
	}
	return nil
}

func (a *MongoArchive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}

func settlementDocument(s trip.Settlement) (bson.D, error) {
	money := []struct {
		key string
		val decimal.Decimal
	}{
		{"total_weight", s.TotalWeight},
		{"sales_amount", s.SalesAmount},
		{"cash_collected", s.CashCollected},
		{"upi_collected", s.UPICollected},
		{"pending", s.Pending},
		{"diesel_expense", s.Expense.DieselExpense},
		{"driver_expense", s.Expense.DriverExpense},
		{"other_expense", s.Expense.OtherExpense},
		{"purchase_rate_per_kg", s.Expense.PurchaseRatePerKg},
		{"expense_total", s.ExpenseTotal},
		{"purchase_cost", s.PurchaseCost},
		{"margin", s.Margin},
	}
	doc := bson.D{
		{Key: "tenant_id", Value: s.TenantID},
		{Key: "trip_id", Value: s.TripID},
		{Key: "closed_at", Value: primitive.NewDateTimeFromTime(s.ClosedAt)},
		{Key: "total_birds", Value: s.TotalBirds},
	}
	for _, m := range money {
		d, err := primitive.ParseDecimal128(m.val.String())
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.key, err)
		}
		doc = append(doc, bson.E{Key: m.key, Value: d})
	}
	doc = append(doc, bson.E{Key: "archived_at", Value: primitive.NewDateTimeFromTime(time.Now().UTC())})
	return doc, nil
}
