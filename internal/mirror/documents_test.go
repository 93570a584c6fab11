package mirror

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestDocuments_NormalizesNumbers(t *testing.T) {
	raw := []byte(`[{
		"id": 119133,
		"name": "Elden Ring",
		"rating": 93.5,
		"genres": [12, 31],
		"cover": {"id": 82821, "url": "//images.example.com/co1rfi.jpg"}
	}]`)

	docs, err := documents(raw)
	if err != nil {
		t.Fatalf("documents() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("documents() returned %d docs, want 1", len(docs))
	}
	doc := docs[0]

	if id, ok := doc["id"].(int64); !ok || id != 119133 {
		t.Errorf("id = %v (%T), want int64 119133", doc["id"], doc["id"])
	}
	if rating, ok := doc["rating"].(float64); !ok || rating != 93.5 {
		t.Errorf("rating = %v (%T), want float64 93.5", doc["rating"], doc["rating"])
	}

	genres, ok := doc["genres"].([]any)
	if !ok || len(genres) != 2 {
		t.Fatalf("genres = %v (%T), want two-element slice", doc["genres"], doc["genres"])
	}
	if g, ok := genres[0].(int64); !ok || g != 12 {
		t.Errorf("genres[0] = %v (%T), want int64 12", genres[0], genres[0])
	}

	cover, ok := doc["cover"].(bson.M)
	if !ok {
		t.Fatalf("cover = %v (%T), want nested bson.M", doc["cover"], doc["cover"])
	}
	if id, ok := cover["id"].(int64); !ok || id != 82821 {
		t.Errorf("cover id = %v (%T), want int64 82821", cover["id"], cover["id"])
	}
}

func TestDocuments_NonArrayIsBadPayload(t *testing.T) {
	for _, raw := range []string{`{"id": 1}`, `not json`, `42`} {
		if _, err := documents([]byte(raw)); !errors.Is(err, ErrBadPayload) {
			t.Errorf("documents(%q) error = %v, want ErrBadPayload", raw, err)
		}
	}
}

func TestDocument_SingleObject(t *testing.T) {
	doc, err := document([]byte(`{"id": 5, "name": "Portal"}`))
	if err != nil {
		t.Fatalf("document() error = %v", err)
	}
	if id, ok := doc["id"].(int64); !ok || id != 5 {
		t.Errorf("id = %v (%T), want int64 5", doc["id"], doc["id"])
	}

	if _, err := document([]byte(`[{"id": 5}]`)); !errors.Is(err, ErrBadPayload) {
		t.Errorf("document(array) error = %v, want ErrBadPayload", err)
	}
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		doc     bson.M
		want    uint64
		wantErr bool
	}{
		{"valid", bson.M{"id": int64(7)}, 7, false},
		{"missing", bson.M{"name": "x"}, 0, true},
		{"zero", bson.M{"id": int64(0)}, 0, true},
		{"negative", bson.M{"id": int64(-2)}, 0, true},
		{"not normalized", bson.M{"id": float64(7.5)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := documentID(tt.doc)
			if tt.wantErr {
				if !errors.Is(err, ErrBadPayload) {
					t.Errorf("error = %v, want ErrBadPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("documentID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("documentID() = %d, want %d", got, tt.want)
			}
		})
	}
}
