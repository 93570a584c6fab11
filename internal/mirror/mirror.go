// Package mirror maintains local MongoDB replicas of the upstream catalog
// collections and keeps them fresh through bulk clones and webhook
// deliveries. All query traffic is served from the replicas; the upstream
// is only contacted to (re)build them.
package mirror

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ludexhq/ludex/internal/store"
	"github.com/ludexhq/ludex/internal/types"
)

// collectionPrefix namespaces the mirrored collections inside the database.
const collectionPrefix = "IGDB_col_"

// searchLimit caps every text search; the matcher never needs more
// candidates than this.
const searchLimit = 30

// Upstream endpoint names, which double as Mongo collection suffixes and
// webhook path segments.
const (
	EndpointGames             = "games"
	EndpointAlternativeNames  = "alternative_names"
	EndpointExternalGames     = "external_games"
	EndpointGameLocalizations = "game_localizations"
	EndpointCompanies         = "companies"
	EndpointGenres            = "genres"
	EndpointPlatforms         = "platforms"
)

// Config carries the webhook callback settings. Both values may be empty;
// ConfigureWebhooks fails with ErrWebhookConfigMissing when they are, and
// nothing else needs them.
type Config struct {
	WebhookRoot   string
	WebhookSecret string
}

// Mirror owns one Collection per mirrored entity class and exposes the
// typed lookups the matcher and the query facade run against them.
type Mirror struct {
	Games             *Collection[types.Game]
	AlternativeNames  *Collection[types.AlternativeName]
	ExternalGames     *Collection[types.ExternalGame]
	GameLocalizations *Collection[types.GameLocalization]
	Companies         *Collection[types.Company]
	Genres            *Collection[types.Genre]
	Platforms         *Collection[types.Platform]

	upstream   Upstream
	byEndpoint map[string]Syncer
	order      []Syncer
}

// New wires every mirrored collection against the given store and upstream.
// Indexes are not touched here; call EnsureIndexes once connectivity is up.
func New(st *store.Store, upstream Upstream, cfg Config, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mirror")

	m := &Mirror{
		upstream:   upstream,
		byEndpoint: make(map[string]Syncer),
	}

	m.Games = register[types.Game](m, st, upstream, cfg, logger, EndpointGames,
		[]store.IndexSpec{{Text: []string{"name"}}, {Fields: []string{"category"}}})
	m.AlternativeNames = register[types.AlternativeName](m, st, upstream, cfg, logger, EndpointAlternativeNames,
		[]store.IndexSpec{{Text: []string{"name"}}, {Fields: []string{"game"}}})
	m.ExternalGames = register[types.ExternalGame](m, st, upstream, cfg, logger, EndpointExternalGames,
		[]store.IndexSpec{{Fields: []string{"uid", "category"}}})
	m.GameLocalizations = register[types.GameLocalization](m, st, upstream, cfg, logger, EndpointGameLocalizations,
		[]store.IndexSpec{{Text: []string{"name"}}, {Fields: []string{"game"}}})
	m.Companies = register[types.Company](m, st, upstream, cfg, logger, EndpointCompanies, nil)
	m.Genres = register[types.Genre](m, st, upstream, cfg, logger, EndpointGenres, nil)
	m.Platforms = register[types.Platform](m, st, upstream, cfg, logger, EndpointPlatforms, nil)

	return m
}

func register[T any](m *Mirror, st *store.Store, up Upstream, cfg Config, logger *slog.Logger, endpoint string, indexes []store.IndexSpec) *Collection[T] {
	c := &Collection[T]{
		endpoint:      endpoint,
		store:         store.NewCollection[T](st, collectionPrefix+endpoint, indexes),
		upstream:      up,
		webhookRoot:   cfg.WebhookRoot,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
	m.byEndpoint[endpoint] = c
	m.order = append(m.order, c)
	return c
}

// ByEndpoint resolves the collection owning an upstream endpoint name; the
// webhook ingress dispatches on this.
func (m *Mirror) ByEndpoint(endpoint string) (Syncer, bool) {
	s, ok := m.byEndpoint[endpoint]
	return s, ok
}

// All returns every mirrored collection in clone order.
func (m *Mirror) All() []Syncer {
	return m.order
}

// EnsureIndexes creates the declared indexes on every collection.
func (m *Mirror) EnsureIndexes(ctx context.Context) error {
	for _, s := range m.order {
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Counts reports the local item count per endpoint.
func (m *Mirror) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(m.order))
	for _, s := range m.order {
		n, err := s.Count(ctx)
		if err != nil {
			return nil, err
		}
		counts[s.Endpoint()] = n
	}
	return counts, nil
}

// ListWebhooks fetches the upstream's current webhook registrations, shared
// across every collection's ConfigureWebhooks pass.
func (m *Mirror) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	raw, err := m.upstream.Get(ctx, "webhooks")
	if err != nil {
		return nil, err
	}
	return parseWebhooks(raw)
}

// ConfigureWebhooks registers callbacks for every collection, skipping the
// ones the upstream already knows.
func (m *Mirror) ConfigureWebhooks(ctx context.Context) error {
	current, err := m.ListWebhooks(ctx)
	if err != nil {
		return err
	}
	for _, s := range m.order {
		if err := s.ConfigureWebhooks(ctx, current); err != nil {
			return err
		}
	}
	return nil
}

// GameByID returns the mirrored game, or (nil, nil) when the id is zero or
// unknown locally. There is no upstream fall-through on a miss.
func (m *Mirror) GameByID(ctx context.Context, id uint64) (*types.Game, error) {
	return m.Games.GetItem(ctx, id)
}

// SearchGames runs the primary-name text search, restricted to the
// categories that can stand alone as titles.
func (m *Mirror) SearchGames(ctx context.Context, term string) ([]store.Scored[types.Game], error) {
	filter := bson.M{"category": bson.M{"$in": types.DefaultSearchCategories}}
	return m.Games.store.TextSearch(ctx, term, filter, searchLimit)
}

// SearchAlternativeNames runs the synonym text search, unfiltered by
// category (alternative names have none).
func (m *Mirror) SearchAlternativeNames(ctx context.Context, term string) ([]store.Scored[types.AlternativeName], error) {
	return m.AlternativeNames.store.TextSearch(ctx, term, nil, searchLimit)
}

// ResolveExternal looks up a storefront-local id for the given storefront,
// returning (nil, nil) when nothing is mirrored under it.
func (m *Mirror) ResolveExternal(ctx context.Context, uid string, category types.ExternalGameCategory) (*types.ExternalGame, error) {
	ext, err := m.ExternalGames.store.FindOneBy(ctx, bson.M{"uid": uid, "category": category})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ext, nil
}
