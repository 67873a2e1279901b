package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/banksodee/clubsync/internal/config"
	"github.com/banksodee/clubsync/internal/model"
)

// MongoStore implements Store on a single MongoDB collection holding every
// document type, discriminated by _type.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// Connect opens the MongoDB client described by cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.ContentConfig) (*MongoStore, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetTimeout(cfg.Timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to content store: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping content store: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		now:    time.Now,
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the connection is alive.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes creates the lookup index on _type and a unique partial index
// on (_type, supabaseId) so at most one document links a given relational id.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "_type", Value: 1}}},
		{
			Keys: bson.D{{Key: "_type", Value: 1}, {Key: model.DocumentLinkField, Value: 1}},
			Options: options.Index().
				SetName("uniq_type_supabase_id").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{model.DocumentLinkField: bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create content indexes: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, docType, id string) (model.Document, error) {
	return s.findOne(ctx, bson.M{"_type": docType, "_id": id})
}

// FindOne implements Store.
func (s *MongoStore) FindOne(ctx context.Context, docType, field string, value interface{}) (model.Document, error) {
	return s.findOne(ctx, bson.M{"_type": docType, field: value})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (model.Document, error) {
	var raw bson.M
	err := s.coll.FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("content query failed: %w", err)
	}
	return toDocument(raw), nil
}

// GetMany implements Store.
func (s *MongoStore) GetMany(ctx context.Context, docType string, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.coll.Find(ctx,
		bson.M{"_type": docType, "_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("content query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("content query failed: %w", err)
	}
	docs := make([]model.Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, toDocument(raw))
	}
	return docs, nil
}

// Create implements Store.
func (s *MongoStore) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	created := prepareCreate(doc, s.now())
	if _, err := s.coll.InsertOne(ctx, bson.M(created)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = fmt.Errorf("%w: %v", ErrDuplicateLink, err)
		}
		return nil, &model.WriteError{Store: "content", Op: "create " + created.Type(), Err: err}
	}
	return created, nil
}

// Patch implements Store.
func (s *MongoStore) Patch(ctx context.Context, id string, fields model.Document) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, patchUpdate(fields, s.now()))
	if err != nil {
		return &model.WriteError{Store: "content", Op: "patch " + id, Err: err}
	}
	if res.MatchedCount == 0 {
		return &model.WriteError{Store: "content", Op: "patch " + id, Err: ErrDocumentNotFound}
	}
	return nil
}

// prepareCreate copies doc and assigns _id, _rev and timestamps.
func prepareCreate(doc model.Document, now time.Time) model.Document {
	created := make(model.Document, len(doc)+4)
	for k, v := range doc {
		created[k] = v
	}
	if created.ID() == "" {
		created["_id"] = uuid.New().String()
	}
	stamp := now.UTC().Format(time.RFC3339)
	created["_rev"] = uuid.New().String()
	created["_createdAt"] = stamp
	created["_updatedAt"] = stamp
	return created
}

// patchUpdate builds the $set document for a patch. _id and _type are never patched.
func patchUpdate(fields model.Document, now time.Time) bson.M {
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" || k == "_type" {
			continue
		}
		set[k] = v
	}
	set["_rev"] = uuid.New().String()
	set["_updatedAt"] = now.UTC().Format(time.RFC3339)
	return bson.M{"$set": set}
}

// toDocument converts decoded bson values into plain Go maps and slices.
func toDocument(raw bson.M) model.Document {
	doc := make(model.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalize(v)
	}
	return doc
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = normalize(inner)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = normalize(inner)
		}
		return m
	case bson.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = normalize(inner)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	default:
		return v
	}
}
