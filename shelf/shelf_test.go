package shelf

import (
	"errors"
	"testing"
)

func TestParseCategory(t *testing.T) {
	t.Run("accepts the canonical trio", func(t *testing.T) {
		for _, raw := range []string{"keep", "sell", "lend"} {
			c, err := ParseCategory(raw)
			if err != nil {
				t.Errorf("ParseCategory(%q) returned error: %v", raw, err)
			}
			if string(c) != raw {
				t.Errorf("ParseCategory(%q) = %q", raw, c)
			}
		}
	})

	t.Run("rejects drifted spellings", func(t *testing.T) {
		for _, raw := range []string{"buy", "land", "Keep", "", "shelf"} {
			if _, err := ParseCategory(raw); !errors.Is(err, ErrInvalidCategory) {
				t.Errorf("ParseCategory(%q) should fail with ErrInvalidCategory, got %v", raw, err)
			}
		}
	})
}

func TestPlace(t *testing.T) {
	t.Run("initial placement", func(t *testing.T) {
		var s Shelf
		if err := s.Place("b1", CategorySell); err != nil {
			t.Fatalf("Place: %v", err)
		}
		if got, ok := s.BucketOf("b1"); !ok || got != CategorySell {
			t.Errorf("BucketOf(b1) = %q, %v; want sell, true", got, ok)
		}
	})

	t.Run("invalid category is rejected", func(t *testing.T) {
		var s Shelf
		if err := s.Place("b1", Category("buy")); !errors.Is(err, ErrInvalidCategory) {
			t.Errorf("Place with bad category returned %v", err)
		}
		if s.Contains("b1") {
			t.Error("failed Place must not mutate the shelf")
		}
	})

	t.Run("placing again moves rather than duplicates", func(t *testing.T) {
		var s Shelf
		_ = s.Place("b1", CategoryKeep)
		_ = s.Place("b1", CategoryLend)
		if len(s.Keep) != 0 {
			t.Errorf("keep bucket still holds %v", s.Keep)
		}
		if len(s.Lend) != 1 || s.Lend[0] != "b1" {
			t.Errorf("lend bucket = %v", s.Lend)
		}
	})
}

func TestReassign(t *testing.T) {
	t.Run("moves between buckets", func(t *testing.T) {
		var s Shelf
		_ = s.Place("b1", CategorySell)
		if err := s.Reassign("b1", CategorySell, CategoryLend); err != nil {
			t.Fatalf("Reassign: %v", err)
		}
		if got, _ := s.BucketOf("b1"); got != CategoryLend {
			t.Errorf("book ended up in %q, want lend", got)
		}
		if len(s.Sell) != 0 {
			t.Errorf("sell bucket not emptied: %v", s.Sell)
		}
	})

	t.Run("no-op when category unchanged", func(t *testing.T) {
		s := Shelf{Sell: []string{"a", "b1", "c"}}
		if err := s.Reassign("b1", CategorySell, CategorySell); err != nil {
			t.Fatalf("Reassign: %v", err)
		}
		// Order must be preserved on a no-op, not remove-and-append.
		if len(s.Sell) != 3 || s.Sell[1] != "b1" {
			t.Errorf("sell bucket reordered: %v", s.Sell)
		}
	})

	t.Run("converges a drifted shelf", func(t *testing.T) {
		// The same id in two buckets violates the invariant; reassignment
		// must sweep both.
		s := Shelf{Keep: []string{"b1"}, Sell: []string{"b1"}}
		if err := s.Reassign("b1", CategoryKeep, CategoryLend); err != nil {
			t.Fatalf("Reassign: %v", err)
		}
		if len(s.Keep) != 0 || len(s.Sell) != 0 {
			t.Errorf("old buckets not swept: keep=%v sell=%v", s.Keep, s.Sell)
		}
		if len(s.Lend) != 1 {
			t.Errorf("lend = %v", s.Lend)
		}
	})

	t.Run("invalid target category", func(t *testing.T) {
		var s Shelf
		_ = s.Place("b1", CategoryKeep)
		if err := s.Reassign("b1", CategoryKeep, Category("land")); !errors.Is(err, ErrInvalidCategory) {
			t.Errorf("Reassign to land returned %v", err)
		}
		if got, _ := s.BucketOf("b1"); got != CategoryKeep {
			t.Errorf("failed Reassign moved the book to %q", got)
		}
	})
}

func TestRemove(t *testing.T) {
	t.Run("tolerates absence", func(t *testing.T) {
		var s Shelf
		s.Remove("ghost") // must not panic
	})

	t.Run("removes from every bucket", func(t *testing.T) {
		s := Shelf{
			Keep: []string{"b1", "x"},
			Sell: []string{"b1"},
			Lend: []string{"y", "b1"},
		}
		s.Remove("b1")
		if s.Contains("b1") {
			t.Error("b1 still on shelf after Remove")
		}
		if len(s.Keep) != 1 || s.Keep[0] != "x" {
			t.Errorf("keep = %v", s.Keep)
		}
		if len(s.Lend) != 1 || s.Lend[0] != "y" {
			t.Errorf("lend = %v", s.Lend)
		}
	})
}

func TestIDs(t *testing.T) {
	s := Shelf{Keep: []string{"a"}, Sell: []string{"b"}, Lend: []string{"c", "d"}}
	ids := s.IDs()
	want := []string{"a", "b", "c", "d"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestBucket(t *testing.T) {
	s := Shelf{Keep: []string{"a"}, Sell: []string{"b"}}
	if got := s.Bucket(CategorySell); len(got) != 1 || got[0] != "b" {
		t.Errorf("Bucket(sell) = %v, want [b]", got)
	}
	if got := s.Bucket(CategoryLend); len(got) != 0 {
		t.Errorf("Bucket(lend) = %v, want empty", got)
	}
	if got := s.Bucket(Category("buy")); got != nil {
		t.Errorf("Bucket(buy) = %v, want nil", got)
	}
}
