package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Library ids accepted in MetadataRequest.LibraryID. When one of these is
// sent together with a storefront GameID, the server resolves the id
// directly instead of matching by name.
var (
	LibrarySteam  = uuid.MustParse("CB91DFC9-B977-43BF-8E70-55F46E410FAB")
	LibraryGOG    = uuid.MustParse("AEBE8B7C-6DC3-4A66-AF31-E7375C6B5E9E")
	LibraryEpic   = uuid.MustParse("00000002-DBD1-46C6-B5D0-B1BA559D10E4")
	LibraryItchIo = uuid.MustParse("00000001-EBB2-4EEC-ABCB-7C89937A42BB")
)

// GameCategory classifies a catalog entry
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

// Game is one catalog entry as served by the API. The typed fields cover
// what most callers branch on; Raw keeps the complete upstream record
// (cover, genres, summary, ...) for everything else.
type Game struct {
	ID               uint64       `json:"id"`
	Name             string       `json:"name"`
	Category         GameCategory `json:"category"`
	FirstReleaseDate int64        `json:"first_release_date"`

	// Raw is the untouched JSON object the server returned.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and retains the full object in Raw.
func (g *Game) UnmarshalJSON(data []byte) error {
	type plain Game
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = Game(p)
	g.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ReleaseYear returns the UTC year of the first release date, or 0 when
// the date is unknown.
func (g *Game) ReleaseYear() int {
	if g.FirstReleaseDate == 0 {
		return 0
	}
	return time.Unix(g.FirstReleaseDate, 0).UTC().Year()
}

// MetadataRequest asks the service to resolve a noisy title. Name is
// required unless GameID and LibraryID identify the game directly;
// ReleaseYear disambiguates franchises with several same-named entries.
type MetadataRequest struct {
	Name        string    `json:"Name,omitempty"`
	ReleaseYear int       `json:"ReleaseYear,omitempty"`
	LibraryID   uuid.UUID `json:"LibraryId,omitempty"`
	GameID      string    `json:"GameId,omitempty"`
}

// searchRequest is the body of POST /igdb/search
type searchRequest struct {
	SearchTerm string `json:"SearchTerm"`
}

// Health mirrors GET /health.
type Health struct {
	Status      string           `json:"status"`
	Version     string           `json:"version"`
	Collections map[string]int64 `json:"collections,omitempty"`
}

// APIError is an application-level failure the service reports inside the
// response envelope. Such responses still carry HTTP status 200.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}
