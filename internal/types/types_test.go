package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestGame_MarshalJSONMergesExtra(t *testing.T) {
	game := Game{
		ID:               1942,
		Name:             "The Witcher 3: Wild Hunt",
		Category:         CategoryMainGame,
		FirstReleaseDate: 1431993600,
		Extra: bson.M{
			"summary": "A story-driven open world RPG.",
			"genres":  []int64{12, 31},
		},
	}

	data, err := json.Marshal(game)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	raw := string(data)
	requiredKeys := []string{
		`"id":1942`, `"name":"The Witcher 3: Wild Hunt"`, `"category":0`,
		`"first_release_date":1431993600`, `"summary"`, `"genres"`,
	}
	for _, key := range requiredKeys {
		if !strings.Contains(raw, key) {
			t.Errorf("Missing %s in output: %s", key, raw)
		}
	}
}

func TestGame_MarshalJSONTypedFieldsWin(t *testing.T) {
	// A stale value under a modeled key in Extra must not shadow the
	// typed field.
	game := Game{
		ID:    7,
		Name:  "Portal",
		Extra: bson.M{"name": "stale"},
	}

	data, err := json.Marshal(game)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	raw := string(data)
	if !strings.Contains(raw, `"name":"Portal"`) {
		t.Errorf("Typed name should win, got: %s", raw)
	}
	if strings.Contains(raw, `"stale"`) {
		t.Errorf("Extra must not shadow typed fields, got: %s", raw)
	}
}

func TestGame_MarshalJSONOmitsZeroReleaseDate(t *testing.T) {
	game := Game{ID: 7, Name: "Portal"}

	data, err := json.Marshal(game)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if strings.Contains(string(data), "first_release_date") {
		t.Errorf("Zero release date should be omitted, got: %s", data)
	}
}

func TestGame_ReleaseYear(t *testing.T) {
	tests := []struct {
		name string
		unix int64
		want int
	}{
		{"unknown date", 0, 0},
		{"witcher 3", 1431993600, 2015},
		{"doom 1993", 755136000, 1993},
		{"pre-epoch", -86400, 1969},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Game{FirstReleaseDate: tt.unix}
			if got := g.ReleaseYear(); got != tt.want {
				t.Errorf("ReleaseYear() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLibraryCategories_FixedMapping(t *testing.T) {
	tests := []struct {
		id   string
		want ExternalGameCategory
	}{
		{"CB91DFC9-B977-43BF-8E70-55F46E410FAB", ExternalCategorySteam},
		{"AEBE8B7C-6DC3-4A66-AF31-E7375C6B5E9E", ExternalCategoryGOG},
		{"00000002-DBD1-46C6-B5D0-B1BA559D10E4", ExternalCategoryEpicGameStore},
		{"00000001-EBB2-4EEC-ABCB-7C89937A42BB", ExternalCategoryItchIo},
	}

	for _, tt := range tests {
		got, ok := LibraryCategories[uuid.MustParse(tt.id)]
		if !ok {
			t.Errorf("Library %s missing from map", tt.id)
			continue
		}
		if got != tt.want {
			t.Errorf("Library %s: got category %d, want %d", tt.id, got, tt.want)
		}
	}

	if len(LibraryCategories) != len(tests) {
		t.Errorf("Expected %d library mappings, got %d", len(tests), len(LibraryCategories))
	}

	// Unknown libraries must not resolve.
	if _, ok := LibraryCategories[uuid.MustParse("11111111-1111-1111-1111-111111111111")]; ok {
		t.Error("Unknown library id should not resolve")
	}
}

func TestDefaultSearchCategories_Values(t *testing.T) {
	want := []GameCategory{
		CategoryMainGame,
		CategoryRemake,
		CategoryRemaster,
		CategoryStandaloneExpansion,
	}

	if len(DefaultSearchCategories) != len(want) {
		t.Fatalf("Expected %d categories, got %d", len(want), len(DefaultSearchCategories))
	}
	for i, c := range want {
		if DefaultSearchCategories[i] != c {
			t.Errorf("DefaultSearchCategories[%d] = %d, want %d", i, DefaultSearchCategories[i], c)
		}
	}
}

func TestMetadataRequest_ParsesClientPayload(t *testing.T) {
	body := `{"Name":"Half-Life 2","ReleaseYear":2004,"LibraryId":"CB91DFC9-B977-43BF-8E70-55F46E410FAB","GameId":"220"}`

	var req MetadataRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if req.Name != "Half-Life 2" {
		t.Errorf("Name: got %q, want %q", req.Name, "Half-Life 2")
	}
	if req.ReleaseYear != 2004 {
		t.Errorf("ReleaseYear: got %d, want 2004", req.ReleaseYear)
	}
	if req.GameID != "220" {
		t.Errorf("GameId: got %q, want %q", req.GameID, "220")
	}
	if LibraryCategories[req.LibraryID] != ExternalCategorySteam {
		t.Errorf("LibraryId should resolve to Steam, got %v", req.LibraryID)
	}
}

func TestMetadataRequest_OptionalFieldsDefaultToZero(t *testing.T) {
	var req MetadataRequest
	if err := json.Unmarshal([]byte(`{"Name":"Doom"}`), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if req.LibraryID != uuid.Nil {
		t.Errorf("Missing LibraryId should stay uuid.Nil, got %v", req.LibraryID)
	}
	if req.GameID != "" || req.ReleaseYear != 0 {
		t.Errorf("Missing hints should stay zero, got %+v", req)
	}
}
