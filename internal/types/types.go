package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// GameCategory classifies a catalog entry. The numeric values are assigned
// by the upstream catalog and treated as opaque tags; the only place the
// service branches on them is DefaultSearchCategories.
type GameCategory int64

const (
	CategoryMainGame            GameCategory = 0
	CategoryDLCAddon            GameCategory = 1
	CategoryExpansion           GameCategory = 2
	CategoryBundle              GameCategory = 3
	CategoryStandaloneExpansion GameCategory = 4
	CategoryMod                 GameCategory = 5
	CategoryEpisode             GameCategory = 6
	CategorySeason              GameCategory = 7
	CategoryRemake              GameCategory = 8
	CategoryRemaster            GameCategory = 9
	CategoryExpandedGame        GameCategory = 10
	CategoryPort                GameCategory = 11
	CategoryFork                GameCategory = 12
)

// DefaultSearchCategories is the fixed category filter applied to
// primary-name search. Anything else (DLC, bundles, mods, ...) only
// surfaces through alternative names.
var DefaultSearchCategories = []GameCategory{
	CategoryMainGame,
	CategoryRemake,
	CategoryRemaster,
	CategoryStandaloneExpansion,
}

// ExternalGameCategory identifies the storefront an external id belongs to.
// Values are the upstream external_games.category enum, verbatim.
type ExternalGameCategory int64

const (
	ExternalCategorySteam              ExternalGameCategory = 1
	ExternalCategoryGOG                ExternalGameCategory = 5
	ExternalCategoryYouTube            ExternalGameCategory = 10
	ExternalCategoryMicrosoft          ExternalGameCategory = 11
	ExternalCategoryApple              ExternalGameCategory = 13
	ExternalCategoryTwitch             ExternalGameCategory = 14
	ExternalCategoryAndroid            ExternalGameCategory = 15
	ExternalCategoryAmazonAsin         ExternalGameCategory = 20
	ExternalCategoryAmazonLuna         ExternalGameCategory = 22
	ExternalCategoryAmazonAdg          ExternalGameCategory = 23
	ExternalCategoryEpicGameStore      ExternalGameCategory = 26
	ExternalCategoryOculus             ExternalGameCategory = 28
	ExternalCategoryUtomik             ExternalGameCategory = 29
	ExternalCategoryItchIo             ExternalGameCategory = 30
	ExternalCategoryXboxMarketplace    ExternalGameCategory = 31
	ExternalCategoryKartridge          ExternalGameCategory = 32
	ExternalCategoryPlayStationStoreUs ExternalGameCategory = 36
	ExternalCategoryFocusEntertainment ExternalGameCategory = 37
	ExternalCategoryXboxGamePassCloud  ExternalGameCategory = 54
	ExternalCategoryGamejolt           ExternalGameCategory = 55
)

// LibraryCategories maps the fixed client library ids to the storefront
// category used for external-id lookups. The UUIDs are contractual; clients
// send them verbatim in MetadataRequest.LibraryId.
var LibraryCategories = map[uuid.UUID]ExternalGameCategory{
	uuid.MustParse("CB91DFC9-B977-43BF-8E70-55F46E410FAB"): ExternalCategorySteam,
	uuid.MustParse("AEBE8B7C-6DC3-4A66-AF31-E7375C6B5E9E"): ExternalCategoryGOG,
	uuid.MustParse("00000002-DBD1-46C6-B5D0-B1BA559D10E4"): ExternalCategoryEpicGameStore,
	uuid.MustParse("00000001-EBB2-4EEC-ABCB-7C89937A42BB"): ExternalCategoryItchIo,
}

// Game is the read-side view of a mirrored catalog entry. Documents are
// stored exactly as the upstream sent them; fields the matcher does not
// consume land in Extra and are merged back when the game is serialized
// for clients.
type Game struct {
	ID               uint64       `bson:"id"`
	Name             string       `bson:"name"`
	Category         GameCategory `bson:"category"`
	FirstReleaseDate int64        `bson:"first_release_date"`
	Extra            bson.M       `bson:",inline"`
}

// ReleaseYear returns the UTC year of the first release date, or 0 when the
// date is unknown.
func (g *Game) ReleaseYear() int {
	if g.FirstReleaseDate == 0 {
		return 0
	}
	return time.Unix(g.FirstReleaseDate, 0).UTC().Year()
}

// MarshalJSON flattens the passthrough fields back into the object so API
// clients see the full upstream record, not just the matched fields.
func (g Game) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(g.Extra)+4)
	for k, v := range g.Extra {
		doc[k] = v
	}
	doc["id"] = g.ID
	doc["name"] = g.Name
	doc["category"] = g.Category
	if g.FirstReleaseDate != 0 {
		doc["first_release_date"] = g.FirstReleaseDate
	}
	return json.Marshal(doc)
}

// AlternativeName is a curated synonym pointing at one canonical game.
type AlternativeName struct {
	ID   uint64 `bson:"id"`
	Name string `bson:"name"`
	Game uint64 `bson:"game"`
}

// ExternalGame maps a storefront-local id (e.g. a Steam appid) to a catalog
// game id.
type ExternalGame struct {
	ID       uint64               `bson:"id"`
	UID      string               `bson:"uid"`
	Category ExternalGameCategory `bson:"category"`
	Game     uint64               `bson:"game"`
}

// GameLocalization is a region-specific title pointing at one canonical game.
type GameLocalization struct {
	ID   uint64 `bson:"id"`
	Name string `bson:"name"`
	Game uint64 `bson:"game"`
}

// Company is mirrored for completeness; only the id is indexed.
type Company struct {
	ID   uint64 `bson:"id"`
	Name string `bson:"name"`
}

// Genre is mirrored for completeness; only the id is indexed.
type Genre struct {
	ID   uint64 `bson:"id"`
	Name string `bson:"name"`
}

// Platform is mirrored for completeness; only the id is indexed.
type Platform struct {
	ID   uint64 `bson:"id"`
	Name string `bson:"name"`
}

// SearchRequest is the body of POST /igdb/search.
type SearchRequest struct {
	SearchTerm string `json:"SearchTerm"`
}

// MetadataRequest is the body of POST /igdb/metadata. Name is the noisy
// user-supplied title; ReleaseYear, LibraryId and GameId are optional hints.
// LibraryId must be one of the LibraryCategories keys to be honoured.
type MetadataRequest struct {
	Name        string    `json:"Name,omitempty"`
	ReleaseYear int       `json:"ReleaseYear,omitempty"`
	LibraryID   uuid.UUID `json:"LibraryId,omitempty"`
	GameID      string    `json:"GameId,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string           `json:"status"`
	Version     string           `json:"version"`
	Collections map[string]int64 `json:"collections,omitempty"`
}
