package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"demo/ordercrm/internal/model"
)

// Mongo stores each order as one document in the orders collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoOrder struct {
	ObjectID    primitive.ObjectID `bson:"_id,omitempty"`
	model.Order `bson:",inline"`
}

func (d mongoOrder) order() model.Order {
	o := d.Order
	o.StoreID = d.ObjectID.Hex()
	return o
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	m := &Mongo{client: client, coll: client.Database(database).Collection("orders")}

	_, err = m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "local_status", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }

var demoRegex = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(model.DemoPrefix)}

func notDemo() bson.M { return bson.M{"order_number": bson.M{"$not": demoRegex}} }

func (m *Mongo) FindByOrderID(ctx context.Context, orderID string) (model.Order, bool, error) {
	var d mongoOrder
	err := m.coll.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Order{}, false, nil
		}
		return model.Order{}, false, err
	}
	return d.order(), true, nil
}

func (m *Mongo) Insert(ctx context.Context, o model.Order) error {
	_, err := m.coll.InsertOne(ctx, mongoOrder{Order: o})
	if mongo.IsDuplicateKeyError(err) {
		return errDuplicate(o.OrderID)
	}
	return err
}

func (m *Mongo) Replace(ctx context.Context, o model.Order) error {
	res, err := m.coll.ReplaceOne(ctx, bson.M{"order_id": o.OrderID}, mongoOrder{Order: o})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) List(ctx context.Context, q ListQuery) ([]model.Order, error) {
	filter := notDemo()
	if q.Status != "" {
		filter["local_status"] = q.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []mongoOrder
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, nil
}

func (m *Mongo) SetStatus(ctx context.Context, orderID string, st model.Status, at time.Time) (bool, error) {
	res, err := m.coll.UpdateOne(ctx, bson.M{"order_id": orderID}, bson.M{"$set": bson.M{
		"local_status":      st,
		"status_updated_at": at,
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) SetNotes(ctx context.Context, orderID, notes string) (bool, error) {
	res, err := m.coll.UpdateOne(ctx, bson.M{"order_id": orderID}, bson.M{"$set": bson.M{"notes": notes}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: notDemo()}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$local_status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var groups []struct {
		Status model.Status `bson:"_id"`
		Count  int64        `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	out := make(map[model.Status]int64, len(groups))
	for _, g := range groups {
		out[g.Status] = g.Count
	}
	return out, nil
}

func (m *Mongo) DeleteDemo(ctx context.Context) (int64, error) {
	res, err := m.coll.DeleteMany(ctx, bson.M{"order_number": demoRegex})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *Mongo) Ping(ctx context.Context) error { return m.client.Ping(ctx, readpref.Primary()) }
