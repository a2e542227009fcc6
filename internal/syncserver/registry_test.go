package syncserver

import "testing"

func TestRegistryPutGetDelete(t *testing.T) {
	r := NewRegistry()
	s := newSession("alice", "hello")
	r.Put(s)

	got, ok := r.Get("alice")
	if !ok || got != s {
		t.Fatal("expected to retrieve the stored session")
	}
	if r.Len() != 1 {
		t.Fatalf("expected len 1, got %d", r.Len())
	}

	r.Delete("alice")
	if _, ok := r.Get("alice"); ok {
		t.Fatal("expected session to be gone after delete")
	}
	if r.Len() != 0 {
		t.Fatalf("expected len 0, got %d", r.Len())
	}
}

func TestRegistryRangeOthersExcludesCaller(t *testing.T) {
	r := NewRegistry()
	r.Put(newSession("alice", "x"))
	r.Put(newSession("bob", "x"))
	r.Put(newSession("carol", "x"))

	var seen []string
	r.RangeOthers("alice", func(s *Session) bool {
		seen = append(seen, s.ClientID)
		return true
	})

	if len(seen) != 2 {
		t.Fatalf("expected 2 other sessions, got %d: %v", len(seen), seen)
	}
	for _, id := range seen {
		if id == "alice" {
			t.Fatal("RangeOthers must not include the excluded client")
		}
	}
}
