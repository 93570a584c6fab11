package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ludexhq/ludex/internal/match"
	"github.com/ludexhq/ludex/internal/metrics"
	"github.com/ludexhq/ludex/internal/mirror"
	"github.com/ludexhq/ludex/internal/types"
)

// Catalog is the slice of the mirror the query handlers read from.
// *mirror.Mirror satisfies it; tests plug in fakes.
type Catalog interface {
	GameByID(ctx context.Context, id uint64) (*types.Game, error)
	ResolveExternal(ctx context.Context, uid string, category types.ExternalGameCategory) (*types.ExternalGame, error)
	Counts(ctx context.Context) (map[string]int64, error)
}

// GameMatcher resolves noisy titles; *match.Matcher satisfies it.
type GameMatcher interface {
	Search(ctx context.Context, term string, removeDuplicates bool) ([]match.Result, error)
	Match(ctx context.Context, req types.MetadataRequest) (*types.Game, error)
}

// WebhookRegistry resolves the mirrored collection owning an upstream
// endpoint name; *mirror.Mirror satisfies it.
type WebhookRegistry interface {
	ByEndpoint(endpoint string) (mirror.Syncer, bool)
}

// Handler implements the HTTP API.
type Handler struct {
	catalog       Catalog
	matcher       GameMatcher
	registry      WebhookRegistry
	webhookSecret string
	version       string
	logger        *slog.Logger
}

// NewHandler wires the query facade and webhook ingress over the given
// catalog, matcher and registry.
func NewHandler(catalog Catalog, matcher GameMatcher, registry WebhookRegistry, webhookSecret, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		catalog:       catalog,
		matcher:       matcher,
		registry:      registry,
		webhookSecret: webhookSecret,
		version:       version,
		logger:        logger.With("component", "api"),
	}
}

// Health returns the service status and per-collection document counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.catalog.Counts(r.Context())
	if err != nil {
		h.logger.Error("health check failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := types.HealthResponse{
		Status:      "healthy",
		Version:     h.version,
		Collections: counts,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetGame handles GET /igdb/game/{id}.
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, msgNoID)
		return
	}

	game, err := h.catalog.GameByID(r.Context(), id)
	if err != nil {
		h.logger.Error("game lookup failed", "error", err, "id", id)
		writeError(w, msgInternalError)
		return
	}
	if game == nil {
		writeError(w, msgGameNotFound)
		return
	}

	writeData(w, game)
}

// Search handles POST /igdb/search. The response is the deduplicated hit
// list, best score first; an empty catalog answer is an empty list, not
// null.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req *types.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		writeError(w, msgMissingSearch)
		return
	}

	term := strings.TrimSpace(req.SearchTerm)
	if term == "" {
		writeError(w, msgNoSearchTerm)
		return
	}

	results, err := h.matcher.Search(r.Context(), term, true)
	if err != nil {
		h.logger.Error("search failed", "error", err, "term", term)
		writeError(w, msgInternalError)
		return
	}

	games := make([]types.Game, 0, len(results))
	for _, res := range results {
		games = append(games, res.Game)
	}
	writeData(w, games)
}

// GetMetadata handles POST /igdb/metadata. A storefront id plus a known
// library id resolves through the external-game mirror before any name
// matching runs; a miss there falls through to the matcher. No match is
// not an error: the envelope carries a null payload.
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	var req *types.MetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		writeError(w, msgMissingMetadata)
		return
	}

	if req.GameID != "" {
		if category, ok := types.LibraryCategories[req.LibraryID]; ok {
			game, err := h.resolveExternal(r.Context(), req.GameID, category)
			if err != nil {
				h.logger.Error("external lookup failed", "error", err, "uid", req.GameID, "category", category)
				writeError(w, msgInternalError)
				return
			}
			if game != nil {
				metrics.MatchRequests.WithLabelValues(metrics.MatchOutcomeExternal).Inc()
				writeData(w, game)
				return
			}
		}
	}

	game, err := h.matcher.Match(r.Context(), *req)
	if err != nil {
		h.logger.Error("match failed", "error", err, "name", req.Name)
		writeError(w, msgInternalError)
		return
	}
	if game == nil {
		metrics.MatchRequests.WithLabelValues(metrics.MatchOutcomeUnmatched).Inc()
		writeData(w, nil)
		return
	}

	metrics.MatchRequests.WithLabelValues(metrics.MatchOutcomeMatched).Inc()
	writeData(w, game)
}

// resolveExternal maps a storefront-local id to the mirrored game, or
// (nil, nil) when either hop misses.
func (h *Handler) resolveExternal(ctx context.Context, uid string, category types.ExternalGameCategory) (*types.Game, error) {
	ext, err := h.catalog.ResolveExternal(ctx, uid, category)
	if err != nil || ext == nil {
		return nil, err
	}
	return h.catalog.GameByID(ctx, ext.Game)
}
