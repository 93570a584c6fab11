package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// testItem mirrors the shape of an upstream catalog document.
type testItem struct {
	ID       uint64 `bson:"id"`
	Name     string `bson:"name"`
	Category int64  `bson:"category"`
}

// openTestStore connects to the Mongo deployment named by
// LUDEX_TEST_MONGO_URI, or skips the test when none is configured.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("LUDEX_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LUDEX_TEST_MONGO_URI not set; skipping Mongo integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, uri, "ludex_test")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})
	return s
}

// newTestCollection creates a uniquely named collection that is dropped at
// test end.
func newTestCollection(t *testing.T, s *Store, indexes []IndexSpec) *Collection[testItem] {
	t.Helper()

	name := fmt.Sprintf("store_test_%d", time.Now().UnixNano())
	c := NewCollection[testItem](s, name, indexes)
	t.Cleanup(func() {
		_ = s.Database().Collection(name).Drop(context.Background())
	})

	if err := c.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}
	return c
}

func TestCollection_UpsertAndFind(t *testing.T) {
	s := openTestStore(t)
	c := newTestCollection(t, s, nil)
	ctx := context.Background()

	docs := []bson.M{
		{"id": int64(1), "name": "Portal", "category": int64(0)},
		{"id": int64(2), "name": "Portal 2", "category": int64(0)},
	}
	if err := c.BulkUpsert(ctx, docs); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}

	got, err := c.FindByID(ctx, 2)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Name != "Portal 2" {
		t.Errorf("Name = %q, want %q", got.Name, "Portal 2")
	}

	items, err := c.FindByIDs(ctx, []uint64{1, 2, 999})
	if err != nil {
		t.Fatalf("FindByIDs() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("FindByIDs() returned %d items, want 2", len(items))
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestCollection_UpsertReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	c := newTestCollection(t, s, nil)
	ctx := context.Background()

	if err := c.BulkUpsert(ctx, []bson.M{{"id": int64(1), "name": "Drafted Title"}}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	if err := c.BulkUpsert(ctx, []bson.M{{"id": int64(1), "name": "Final Title"}}); err != nil {
		t.Fatalf("BulkUpsert() second pass error = %v", err)
	}

	got, err := c.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Name != "Final Title" {
		t.Errorf("Name = %q, want replacement to win", got.Name)
	}

	n, _ := c.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1 after re-upsert", n)
	}
}

func TestCollection_FindByID_NotFound(t *testing.T) {
	s := openTestStore(t)
	c := newTestCollection(t, s, nil)

	_, err := c.FindByID(context.Background(), 424242)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID() error = %v, want ErrNotFound", err)
	}
}

func TestCollection_FindOneBy(t *testing.T) {
	s := openTestStore(t)
	c := newTestCollection(t, s, []IndexSpec{{Fields: []string{"name", "category"}}})
	ctx := context.Background()

	docs := []bson.M{
		{"id": int64(10), "name": "doom", "category": int64(1)},
		{"id": int64(11), "name": "doom", "category": int64(5)},
	}
	if err := c.BulkUpsert(ctx, docs); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}

	got, err := c.FindOneBy(ctx, bson.M{"name": "doom", "category": int64(5)})
	if err != nil {
		t.Fatalf("FindOneBy() error = %v", err)
	}
	if got.ID != 11 {
		t.Errorf("ID = %d, want 11", got.ID)
	}

	if _, err := c.FindOneBy(ctx, bson.M{"name": "quake"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOneBy() error = %v, want ErrNotFound", err)
	}
}

func TestCollection_TextSearch(t *testing.T) {
	s := openTestStore(t)
	c := newTestCollection(t, s, []IndexSpec{{Text: []string{"name"}}})
	ctx := context.Background()

	docs := []bson.M{
		{"id": int64(1), "name": "The Witcher", "category": int64(0)},
		{"id": int64(2), "name": "The Witcher 3: Wild Hunt", "category": int64(0)},
		{"id": int64(3), "name": "Witcher Adventure Game", "category": int64(3)},
	}
	if err := c.BulkUpsert(ctx, docs); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}

	results, err := c.TextSearch(ctx, "witcher", nil, 30)
	if err != nil {
		t.Fatalf("TextSearch() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("TextSearch() returned %d hits, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by score desc at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
	for _, r := range results {
		if r.Score <= 0 {
			t.Errorf("hit %d has non-positive score %v", r.Item.ID, r.Score)
		}
	}

	// Case insensitivity comes with the text index.
	upper, err := c.TextSearch(ctx, "WITCHER", nil, 30)
	if err != nil {
		t.Fatalf("TextSearch() upper error = %v", err)
	}
	if len(upper) != len(results) {
		t.Errorf("case-insensitive search returned %d hits, want %d", len(upper), len(results))
	}

	// Extra filter constrains the candidate set.
	filtered, err := c.TextSearch(ctx, "witcher", bson.M{"category": bson.M{"$in": []int64{0}}}, 30)
	if err != nil {
		t.Fatalf("TextSearch() filtered error = %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("filtered search returned %d hits, want 2", len(filtered))
	}

	// Limit caps the result size.
	limited, err := c.TextSearch(ctx, "witcher", nil, 1)
	if err != nil {
		t.Fatalf("TextSearch() limited error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited search returned %d hits, want 1", len(limited))
	}
}

func TestCollection_DeleteByID(t *testing.T) {
	s := openTestStore(t)
	c := newTestCollection(t, s, nil)
	ctx := context.Background()

	if err := c.BulkUpsert(ctx, []bson.M{{"id": int64(5), "name": "Hades"}}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}

	if err := c.DeleteByID(ctx, 5); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if _, err := c.FindByID(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting an unknown id is a no-op.
	if err := c.DeleteByID(ctx, 5); err != nil {
		t.Errorf("DeleteByID() on absent id error = %v, want nil", err)
	}
}

func TestCollection_DropRecreatesIndexes(t *testing.T) {
	s := openTestStore(t)
	c := newTestCollection(t, s, []IndexSpec{{Text: []string{"name"}}})
	ctx := context.Background()

	if err := c.BulkUpsert(ctx, []bson.M{{"id": int64(1), "name": "Celeste"}}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}

	if err := c.Drop(ctx); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count() after drop error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0 after drop", n)
	}

	// The text index must be back immediately: a search right after the
	// drop plans without error and sees new writes.
	if err := c.BulkUpsert(ctx, []bson.M{{"id": int64(2), "name": "Celeste Classic"}}); err != nil {
		t.Fatalf("BulkUpsert() after drop error = %v", err)
	}
	results, err := c.TextSearch(ctx, "celeste", nil, 10)
	if err != nil {
		t.Fatalf("TextSearch() after drop error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("TextSearch() after drop returned %d hits, want 1", len(results))
	}
}
