// Package match resolves noisy user-supplied titles against the catalog
// mirror. Search fans out to the primary-name and alternative-name text
// indexes and merges the hits by relevance; Match then walks a ladder of
// increasingly permissive comparison passes until one settles on a single
// game.
package match

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ludexhq/ludex/internal/store"
	"github.com/ludexhq/ludex/internal/types"
)

// Catalog is the slice of the mirror the matcher searches. *mirror.Mirror
// satisfies it; tests plug in fakes.
type Catalog interface {
	SearchGames(ctx context.Context, term string) ([]store.Scored[types.Game], error)
	SearchAlternativeNames(ctx context.Context, term string) ([]store.Scored[types.AlternativeName], error)
	GameByID(ctx context.Context, id uint64) (*types.Game, error)
}

// Result is one ranked search hit: the store's relevance score, the name
// that actually matched (the game's own or an alternative), and the game
// it resolved to.
type Result struct {
	Score float64
	Name  string
	Game  types.Game
}

// Matcher runs the title-matching pipeline. Safe for concurrent use.
type Matcher struct {
	catalog Catalog
	logger  *slog.Logger
}

// New builds a Matcher over the given catalog.
func New(catalog Catalog, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{catalog: catalog, logger: logger.With("component", "match")}
}

// Search runs the primary-name and alternative-name searches in parallel
// and merges the hits by descending score, primary names ahead of
// alternatives on ties. Alternative-name hits are expanded to their games;
// hits whose game is missing from the mirror are dropped. With
// removeDuplicates, only the best-ranked hit per game survives.
func (m *Matcher) Search(ctx context.Context, term string, removeDuplicates bool) ([]Result, error) {
	var primary, alternates []Result

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := m.catalog.SearchGames(ctx, term)
		if err != nil {
			return err
		}
		primary = make([]Result, 0, len(hits))
		for _, h := range hits {
			primary = append(primary, Result{Score: h.Score, Name: h.Item.Name, Game: h.Item})
		}
		return nil
	})
	g.Go(func() error {
		hits, err := m.catalog.SearchAlternativeNames(ctx, term)
		if err != nil {
			return err
		}
		alternates = make([]Result, 0, len(hits))
		for _, h := range hits {
			game, err := m.catalog.GameByID(ctx, h.Item.Game)
			if err != nil {
				m.logger.Debug("dropping alternative name hit",
					"name", h.Item.Name,
					"game", h.Item.Game,
					"error", err,
				)
				continue
			}
			if game == nil {
				continue
			}
			alternates = append(alternates, Result{Score: h.Score, Name: h.Item.Name, Game: *game})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]Result, 0, len(primary)+len(alternates))
	merged = append(merged, primary...)
	merged = append(merged, alternates...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	if removeDuplicates {
		merged = dedupeByGame(merged)
	}
	return merged, nil
}

// dedupeByGame keeps the first hit per game id. The list is pre-sorted, so
// a game found through both its own name and an alternative keeps whichever
// scored higher.
func dedupeByGame(results []Result) []Result {
	seen := make(map[uint64]struct{}, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Game.ID]; ok {
			continue
		}
		seen[r.Game.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

var (
	andRe       = regexp.MustCompile(`\s+and\s+`)
	separatorRe = regexp.MustCompile(`\s*(:|-)\s*`)
)

func identity(s string) string           { return s }
func prefixThe(s string) string          { return "The " + s }
func andToAmpersand(s string) string     { return andRe.ReplaceAllString(s, " & ") }
func stripApostrophes(s string) string   { return strings.ReplaceAll(s, "'", "") }
func collapseSeparators(s string) string { return separatorRe.ReplaceAllString(s, " ") }

// passes is the disambiguation ladder. Each pass transforms the sanitized
// request name and/or the sanitized candidate names, then compares them
// case-insensitively; the transforms never accumulate across passes.
var passes = []struct {
	name      string
	request   func(string) string
	candidate func(string) string
}{
	{"exact", identity, identity},
	{"roman-numerals", RomanizeDigits, identity},
	{"the-prefix", prefixThe, identity},
	{"ampersand", andToAmpersand, identity},
	{"apostrophes", identity, stripApostrophes},
	{"separators", collapseSeparators, collapseSeparators},
}

// candidate pairs a search hit with the sanitized form of its matched name.
type candidate struct {
	name   string
	result Result
}

// Match returns the single catalog game best matching the request, or nil
// when no pass settles on one. It never returns a "close" match: every pass
// demands name equality under its transform, so a miss means nil, not the
// top search hit.
func (m *Matcher) Match(ctx context.Context, req types.MetadataRequest) (*types.Game, error) {
	name := Sanitize(req.Name)
	if name == "" {
		return nil, nil
	}

	results, err := m.Search(ctx, name, false)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	cands := make([]candidate, 0, len(results))
	for _, r := range results {
		cands = append(cands, candidate{name: Sanitize(r.Name), result: r})
	}

	for _, p := range passes {
		want := p.request(name)
		var matched []candidate
		for _, c := range cands {
			if strings.EqualFold(p.candidate(c.name), want) {
				matched = append(matched, c)
			}
		}
		if game := disambiguate(matched, req.ReleaseYear); game != nil {
			m.logger.Debug("title matched",
				"name", req.Name,
				"pass", p.name,
				"game", game.ID,
			)
			return game, nil
		}
	}

	// Subtitle trim: a bare series title matches the first entry carrying a
	// subtitle ("Half-Life 2" finds "Half-Life 2: Episode One").
	for _, c := range cands {
		base, _, ok := strings.Cut(c.name, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(base), name) {
			game := c.result.Game
			m.logger.Debug("title matched",
				"name", req.Name,
				"pass", "subtitle-trim",
				"game", game.ID,
			)
			return &game, nil
		}
	}

	return nil, nil
}

// disambiguate picks one game out of a pass's equal-name matches. A release
// year hint must be honoured exactly or the whole pass fails; without a
// hint the earliest dated game wins, and undated games only win when no
// match carries a date.
func disambiguate(matched []candidate, releaseYear int) *types.Game {
	switch len(matched) {
	case 0:
		return nil
	case 1:
		g := matched[0].result.Game
		return &g
	}

	if releaseYear > 0 {
		for _, c := range matched {
			if c.result.Game.ReleaseYear() == releaseYear {
				g := c.result.Game
				return &g
			}
		}
		return nil
	}

	best := -1
	for i, c := range matched {
		if c.result.Game.FirstReleaseDate <= 0 {
			continue
		}
		if best < 0 || c.result.Game.FirstReleaseDate < matched[best].result.Game.FirstReleaseDate {
			best = i
		}
	}
	if best < 0 {
		g := matched[0].result.Game
		return &g
	}
	g := matched[best].result.Game
	return &g
}
