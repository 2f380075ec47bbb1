package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/query"
)

// Connect opens a client for uri and verifies it with a ping
func Connect(ctx context.Context, uri string, log *logger.Logger) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.OrNop(log).Info("connected to mongodb")
	return client, nil
}

// ProductRepository implements domain.ProductRepository on a MongoDB collection
type ProductRepository struct {
	coll *mongo.Collection
	log  *logger.Logger
}

// NewProductRepository wraps a products collection
func NewProductRepository(coll *mongo.Collection, log *logger.Logger) *ProductRepository {
	return &ProductRepository{
		coll: coll,
		log:  logger.OrNop(log).With("service", "MongoProductRepository"),
	}
}

// Find runs the rendered predicate, ordered by _id for stable paging
func (r *ProductRepository) Find(ctx context.Context, predicate query.Node, page domain.Page) ([]domain.Product, error) {
	filter, err := Render(predicate)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}

	products := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, domain.Product(plain(d).(map[string]interface{})))
	}
	r.log.Debug("mongo find", "filter", filter, "results", len(products))
	return products, nil
}

// Insert upserts products by id; an "id" field becomes the document _id.
// Products without an id are inserted with a generated _id.
func (r *ProductRepository) Insert(ctx context.Context, products ...domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	res, err := r.coll.BulkWrite(ctx, writeModels(products), options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("mongo upsert: %w", err)
	}
	r.log.Debug("mongo upsert",
		"inserted", res.InsertedCount,
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
	)
	return nil
}

func writeModels(products []domain.Product) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		doc := toDocument(p)
		id, ok := doc["_id"]
		if !ok || id == nil {
			delete(doc, "_id")
			models = append(models, mongo.NewInsertOneModel().SetDocument(doc))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	return models
}

// toDocument copies p, moving "id" to "_id" unless _id is already set
func toDocument(p domain.Product) bson.M {
	doc := bson.M{}
	for k, v := range p {
		doc[k] = v
	}
	if id, ok := doc["id"]; ok {
		if _, hasID := doc["_id"]; !hasID {
			doc["_id"] = id
		}
		delete(doc, "id")
	}
	return doc
}

// plain converts driver types into the map/slice shapes used across the app
func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case map[string]interface{}:
		return plainMap(t)
	case bson.D:
		return plainMap(t.Map())
	case bson.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		return t.String()
	case int32:
		return int64(t)
	}
	return v
}

func plainMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	if id, ok := out["_id"]; ok {
		if _, hasID := out["id"]; !hasID {
			out["id"] = id
		}
	}
	return out
}
