package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documents.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreLoadSeedsDefault(t *testing.T) {
	s := setupTestSQLiteStore(t)
	doc, err := s.Load(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != DefaultContent || doc.Version != 1 {
		t.Fatalf("got %+v", doc)
	}
}

func TestSQLiteStoreSavePersists(t *testing.T) {
	s := setupTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Load(ctx, "main"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "main", "persistent hello"); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "persistent hello" {
		t.Fatalf("got content %q", doc.Content)
	}
}

func TestSQLiteStoreSaveVersionNeverRegresses(t *testing.T) {
	s := setupTestSQLiteStore(t)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		v, err := s.Save(ctx, "main", "edit")
		if err != nil {
			t.Fatal(err)
		}
		if v <= last {
			t.Fatalf("version regressed: %d after %d", v, last)
		}
		last = v
	}
}

func TestSQLiteStoreReopenSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.Save(ctx, "main", "Persistent hello"); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	doc, err := s2.Load(ctx, "main")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "Persistent hello" {
		t.Fatalf("got %q after reopen", doc.Content)
	}
}
