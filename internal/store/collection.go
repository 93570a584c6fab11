package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// IndexSpec describes one secondary index on a mirrored collection. Exactly
// one of Text or Fields is set: Text folds the listed fields into the
// collection's text index, Fields builds an ascending index (compound when
// more than one field is listed).
type IndexSpec struct {
	Text   []string
	Fields []string
}

func (s IndexSpec) model() mongo.IndexModel {
	keys := bson.D{}
	if len(s.Text) > 0 {
		for _, f := range s.Text {
			keys = append(keys, bson.E{Key: f, Value: "text"})
		}
	} else {
		for _, f := range s.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
	}
	return mongo.IndexModel{Keys: keys}
}

// Scored pairs a decoded document with its text-search score. The score is
// a projection-time value, never a stored field.
type Scored[T any] struct {
	Score float64 `bson:"textScore"`
	Item  T       `bson:",inline"`
}

// Collection is a typed wrapper over one Mongo collection. Writes take raw
// documents (the mirror stores upstream payloads verbatim); reads decode
// into T.
type Collection[T any] struct {
	coll    *mongo.Collection
	indexes []IndexSpec
}

// NewCollection binds a wrapper to the named collection. Indexes are not
// created here; call EnsureIndexes (or Drop, which reindexes) explicitly.
func NewCollection[T any](s *Store, name string, indexes []IndexSpec) *Collection[T] {
	return &Collection[T]{coll: s.db.Collection(name), indexes: indexes}
}

// Name returns the Mongo collection name.
func (c *Collection[T]) Name() string {
	return c.coll.Name()
}

// FindByID looks up one document by its upstream id. Returns ErrNotFound
// when no document matches.
func (c *Collection[T]) FindByID(ctx context.Context, id uint64) (*T, error) {
	var item T
	err := c.coll.FindOne(ctx, bson.M{"id": id},
		options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding %s id %d: %w", c.coll.Name(), id, err)
	}
	return &item, nil
}

// FindByIDs fetches all documents whose id is in the given set, in a single
// query. Missing ids are silently absent from the result.
func (c *Collection[T]) FindByIDs(ctx context.Context, ids []uint64) ([]T, error) {
	cur, err := c.coll.Find(ctx, bson.M{"id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("finding %s by ids: %w", c.coll.Name(), err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var items []T
	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return nil, fmt.Errorf("decoding %s document: %w", c.coll.Name(), err)
		}
		items = append(items, item)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", c.coll.Name(), err)
	}
	return items, nil
}

// FindOneBy looks up one document by field equality. Returns ErrNotFound
// when no document matches.
func (c *Collection[T]) FindOneBy(ctx context.Context, filter bson.M) (*T, error) {
	var item T
	err := c.coll.FindOne(ctx, filter,
		options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding %s: %w", c.coll.Name(), err)
	}
	return &item, nil
}

// BulkUpsert replaces-or-inserts every document keyed on its "id" field, in
// one unordered bulk write. Re-delivery of the same document is idempotent.
func (c *Collection[T]) BulkUpsert(ctx context.Context, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(docs))
	for i, doc := range docs {
		id, ok := doc["id"]
		if !ok {
			return fmt.Errorf("%s document %d has no id", c.coll.Name(), i)
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": id}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	_, err := c.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk upsert into %s: %w", c.coll.Name(), err)
	}
	return nil
}

// DeleteByID removes the document with the given upstream id. Deleting an
// absent id is a no-op, not an error.
func (c *Collection[T]) DeleteByID(ctx context.Context, id uint64) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("deleting %s id %d: %w", c.coll.Name(), id, err)
	}
	return nil
}

// TextSearch runs a case- and diacritic-insensitive text query, merges any
// extra equality constraints into the filter, and returns up to limit items
// sorted by descending relevance score.
func (c *Collection[T]) TextSearch(ctx context.Context, term string, filter bson.M, limit int64) ([]Scored[T], error) {
	query := bson.M{"$text": bson.M{"$search": term}}
	for k, v := range filter {
		query[k] = v
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "textScore": bson.M{"$meta": "textScore"}}).
		SetSort(bson.D{{Key: "textScore", Value: bson.M{"$meta": "textScore"}}}).
		SetLimit(limit)

	cur, err := c.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("text search in %s: %w", c.coll.Name(), err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var results []Scored[T]
	for cur.Next(ctx) {
		var scored Scored[T]
		if err := cur.Decode(&scored); err != nil {
			return nil, fmt.Errorf("decoding %s search hit: %w", c.coll.Name(), err)
		}
		results = append(results, scored)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s search: %w", c.coll.Name(), err)
	}
	return results, nil
}

// Count returns the number of documents in the collection.
func (c *Collection[T]) Count(ctx context.Context) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", c.coll.Name(), err)
	}
	return n, nil
}

// Drop removes the collection and synchronously recreates its indexes, so
// reads issued between a drop and the first page of a reload still plan
// against the text index (they just see fewer documents).
func (c *Collection[T]) Drop(ctx context.Context) error {
	if err := c.coll.Drop(ctx); err != nil {
		return fmt.Errorf("dropping %s: %w", c.coll.Name(), err)
	}
	return c.EnsureIndexes(ctx)
}

// EnsureIndexes creates the id index plus every declared IndexSpec. Index
// creation is idempotent on the server side.
func (c *Collection[T]) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{{Keys: bson.D{{Key: "id", Value: 1}}}}
	for _, spec := range c.indexes {
		models = append(models, spec.model())
	}

	if _, err := c.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("creating indexes on %s: %w", c.coll.Name(), err)
	}
	return nil
}
