package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ludexhq/ludex/internal/store"
)

const (
	// clonePageSize is the upstream page size; IGDB caps limit at 500.
	clonePageSize = 500
	// cloneProgressEvery controls how often clone progress is logged.
	cloneProgressEvery = 5000
)

// Upstream is the slice of the catalog client the mirror consumes.
// *igdb.Client satisfies it; tests plug in fakes.
type Upstream interface {
	Query(ctx context.Context, endpoint, body string) ([]byte, error)
	SubmitForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error)
	Get(ctx context.Context, endpoint string) ([]byte, error)
}

// catalogStore is the slice of the storage layer one mirrored collection
// consumes. *store.Collection[T] satisfies it.
type catalogStore[T any] interface {
	FindByID(ctx context.Context, id uint64) (*T, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]T, error)
	FindOneBy(ctx context.Context, filter bson.M) (*T, error)
	BulkUpsert(ctx context.Context, docs []bson.M) error
	DeleteByID(ctx context.Context, id uint64) error
	TextSearch(ctx context.Context, term string, filter bson.M, limit int64) ([]store.Scored[T], error)
	Count(ctx context.Context) (int64, error)
	Drop(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
}

// Syncer is the type-erased surface of one mirrored collection, used by the
// webhook ingress, the clone coordinator and the CLI, which all iterate
// collections without caring about the entity type.
type Syncer interface {
	Endpoint() string
	CloneCollection(ctx context.Context) (int64, error)
	ConfigureWebhooks(ctx context.Context, current []Webhook) error
	ApplyWebhook(ctx context.Context, method string, payload []byte) error
	EnsureIndexes(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	UpstreamCount(ctx context.Context) (uint64, error)
}

// Collection mirrors one upstream endpoint into one Mongo collection.
// Reads are local-only: a missing item is (nil, nil), never an upstream
// call. Freshness comes from webhooks and clones, not from read misses.
type Collection[T any] struct {
	endpoint      string
	store         catalogStore[T]
	upstream      Upstream
	webhookRoot   string
	webhookSecret string
	logger        *slog.Logger

	cloneMu sync.Mutex
}

var _ Syncer = (*Collection[struct{}])(nil)

// Endpoint returns the upstream endpoint name.
func (c *Collection[T]) Endpoint() string {
	return c.endpoint
}

// GetItem returns the mirrored item with the given id, or (nil, nil) when
// the id is zero or nothing is mirrored under it.
func (c *Collection[T]) GetItem(ctx context.Context, id uint64) (*T, error) {
	if id == 0 {
		return nil, nil
	}

	item, err := c.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// GetItems returns the mirrored items for the given ids in one query.
// Unknown ids are absent from the result; an empty id set short-circuits.
func (c *Collection[T]) GetItems(ctx context.Context, ids []uint64) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.store.FindByIDs(ctx, ids)
}

// Add upserts raw upstream documents keyed on their id.
func (c *Collection[T]) Add(ctx context.Context, docs []bson.M) error {
	return c.store.BulkUpsert(ctx, docs)
}

// Delete removes the item with the given id; absent ids are a no-op.
func (c *Collection[T]) Delete(ctx context.Context, id uint64) error {
	return c.store.DeleteByID(ctx, id)
}

// Count returns the number of locally mirrored items.
func (c *Collection[T]) Count(ctx context.Context) (int64, error) {
	return c.store.Count(ctx)
}

// EnsureIndexes creates the collection's declared indexes.
func (c *Collection[T]) EnsureIndexes(ctx context.Context) error {
	return c.store.EnsureIndexes(ctx)
}

// UpstreamCount asks the upstream how many items the endpoint holds.
func (c *Collection[T]) UpstreamCount(ctx context.Context) (uint64, error) {
	raw, err := c.upstream.SubmitForm(ctx, c.endpoint+"/count", url.Values{})
	if err != nil {
		return 0, fmt.Errorf("counting upstream %s: %w", c.endpoint, err)
	}

	var out struct {
		Count uint64 `json:"count"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("parsing %s count: %w", c.endpoint, err)
	}
	return out.Count, nil
}

// CloneCollection rebuilds the local collection from upstream: count, drop
// (indexes are recreated synchronously), then page through the endpoint in
// fixed steps until a short or empty page. Returns the number of items
// cloned. A failed page aborts and leaves the partial collection in place;
// the next clone starts over from the drop.
func (c *Collection[T]) CloneCollection(ctx context.Context) (int64, error) {
	if !c.cloneMu.TryLock() {
		return 0, fmt.Errorf("%w: %s", ErrCloneInProgress, c.endpoint)
	}
	defer c.cloneMu.Unlock()

	total, err := c.UpstreamCount(ctx)
	if err != nil {
		return 0, err
	}

	c.logger.Info("cloning collection",
		"endpoint", c.endpoint,
		"upstream_count", total,
	)

	if err := c.store.Drop(ctx); err != nil {
		return 0, fmt.Errorf("resetting %s: %w", c.endpoint, err)
	}

	var cloned int64
	for offset := int64(0); ; offset += clonePageSize {
		query := fmt.Sprintf("fields *; limit %d; offset %d;", clonePageSize, offset)
		raw, err := c.upstream.Query(ctx, c.endpoint, query)
		if err != nil {
			return cloned, fmt.Errorf("cloning %s at offset %d: %w", c.endpoint, offset, err)
		}

		docs, err := documents(raw)
		if err != nil {
			return cloned, fmt.Errorf("cloning %s at offset %d: %w", c.endpoint, offset, err)
		}
		if len(docs) == 0 {
			break
		}

		if err := c.Add(ctx, docs); err != nil {
			return cloned, fmt.Errorf("storing %s page at offset %d: %w", c.endpoint, offset, err)
		}

		cloned += int64(len(docs))
		if cloned%cloneProgressEvery == 0 {
			c.logger.Info("clone progress",
				"endpoint", c.endpoint,
				"cloned", cloned,
				"upstream_count", total,
			)
		}

		if len(docs) < clonePageSize {
			break
		}
	}

	c.logger.Info("clone complete",
		"endpoint", c.endpoint,
		"cloned", cloned,
		"upstream_count", total,
	)
	return cloned, nil
}
