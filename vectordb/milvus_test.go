package vectordb

import (
	"testing"
	"time"

	"github.com/ragstack/ragchat/schema"
)

func TestEncodeMetadataLeavesDocumentUntouched(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	doc := schema.Document{
		ID:        "doc-1",
		Content:   "hello",
		Metadata:  map[string]interface{}{"source": "notes.txt"},
		CreatedAt: created,
	}

	encoded, err := encodeMetadata(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := doc.Metadata["created_at"]; ok {
		t.Errorf("encode leaked created_at into the document metadata")
	}
	if len(doc.Metadata) != 1 {
		t.Errorf("document metadata changed: %+v", doc.Metadata)
	}

	var gotCreated time.Time
	meta := decodeMetadata(encoded, &gotCreated)
	if meta["source"] != "notes.txt" {
		t.Errorf("source lost in round trip: %+v", meta)
	}
	if _, ok := meta["created_at"]; ok {
		t.Errorf("created_at not stripped on decode: %+v", meta)
	}
	if !gotCreated.Equal(created) {
		t.Errorf("created_at = %v, want %v", gotCreated, created)
	}
}

func TestEncodeMetadataNilMap(t *testing.T) {
	doc := schema.Document{ID: "doc-2", CreatedAt: time.Now().UTC()}
	encoded, err := encodeMetadata(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var created time.Time
	if meta := decodeMetadata(encoded, &created); len(meta) != 0 {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
	if created.IsZero() {
		t.Errorf("created_at not carried for nil metadata")
	}
}
