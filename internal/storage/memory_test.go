package storage

import (
	"context"
	"testing"
)

func TestMemoryStoreLoadSeedsDefault(t *testing.T) {
	s := NewMemoryStore()
	doc, err := s.Load(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != DefaultContent || doc.Version != 1 {
		t.Fatalf("got %+v", doc)
	}
}

func TestMemoryStoreSaveIsMonotonic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Load(ctx, "main"); err != nil {
		t.Fatal(err)
	}

	v1, err := s.Save(ctx, "main", "hello")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := s.Save(ctx, "main", "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if v2 <= v1 {
		t.Fatalf("expected version to increase: %d -> %d", v1, v2)
	}

	doc, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "hello world" || doc.Version != v2 {
		t.Fatalf("got %+v, want content %q version %d", doc, "hello world", v2)
	}
}
