// Package shelf models a user's three category buckets of listed books
// (keep / sell / lend) and the reconciliation rules that keep them consistent
// with each book's current category. The invariant maintained here is that a
// given book id appears in at most one of the three buckets.
package shelf

import (
	"errors"
	"fmt"
)

// Category identifies which shelf bucket a book belongs to.
//
// The canonical names are "keep", "sell" and "lend". Earlier revisions of the
// data drifted between "lend", "land" and "buy"; only the canonical trio is
// accepted here.
type Category string

const (
	// CategoryKeep marks books the owner is keeping.
	CategoryKeep Category = "keep"
	// CategorySell marks books listed for sale.
	CategorySell Category = "sell"
	// CategoryLend marks books offered for lending.
	CategoryLend Category = "lend"
)

// ErrInvalidCategory is returned when a category value is not one of the
// three recognized buckets.
var ErrInvalidCategory = errors.New("invalid shelf category")

// Categories returns the three recognized categories in their canonical order.
func Categories() []Category {
	return []Category{CategoryKeep, CategorySell, CategoryLend}
}

// ParseCategory validates a raw string and converts it to a Category.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
	}
	return c, nil
}

// Valid reports whether the category is one of keep/sell/lend.
func (c Category) Valid() bool {
	switch c {
	case CategoryKeep, CategorySell, CategoryLend:
		return true
	}
	return false
}

// Shelf holds the three ordered book-id lists owned by a single user.
// The zero value is a usable empty shelf.
type Shelf struct {
	Keep []string `json:"keep"`
	Sell []string `json:"sell"`
	Lend []string `json:"lend"`
}

// bucket returns a pointer to the list backing the given category.
// The caller must have validated the category.
func (s *Shelf) bucket(c Category) *[]string {
	switch c {
	case CategoryKeep:
		return &s.Keep
	case CategorySell:
		return &s.Sell
	case CategoryLend:
		return &s.Lend
	}
	return nil
}

// Bucket returns a copy-free view of the list backing the given category,
// or nil for an invalid category. Callers must not mutate it.
func (s *Shelf) Bucket(c Category) []string {
	b := s.bucket(c)
	if b == nil {
		return nil
	}
	return *b
}

// Contains reports whether the book id is present in any bucket.
func (s *Shelf) Contains(bookID string) bool {
	_, ok := s.BucketOf(bookID)
	return ok
}

// BucketOf returns the category whose bucket currently holds the book id.
// If the invariant has been violated and the id appears more than once, the
// first bucket in canonical order wins.
func (s *Shelf) BucketOf(bookID string) (Category, bool) {
	for _, c := range Categories() {
		for _, id := range *s.bucket(c) {
			if id == bookID {
				return c, true
			}
		}
	}
	return "", false
}

// Remove deletes the book id from all three buckets. Removal is defensive:
// absence is tolerated, and duplicate occurrences (which the invariant
// forbids but past data drift produced) are all cleared.
func (s *Shelf) Remove(bookID string) {
	for _, c := range Categories() {
		b := s.bucket(c)
		kept := (*b)[:0]
		for _, id := range *b {
			if id != bookID {
				kept = append(kept, id)
			}
		}
		*b = kept
	}
}

// Place puts the book id into the bucket named by category, removing it from
// wherever it currently sits first so the at-most-one-bucket invariant holds.
func (s *Shelf) Place(bookID string, category Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	s.Remove(bookID)
	b := s.bucket(category)
	*b = append(*b, bookID)
	return nil
}

// Reassign moves the book id from one category bucket to another. It is a
// no-op when the category is unchanged. The old category is advisory only:
// removal sweeps all three buckets so a drifted shelf still converges.
func (s *Shelf) Reassign(bookID string, from, to Category) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, to)
	}
	if from == to && s.Contains(bookID) {
		return nil
	}
	return s.Place(bookID, to)
}

// IDs returns every book id on the shelf, in bucket order.
func (s *Shelf) IDs() []string {
	out := make([]string, 0, len(s.Keep)+len(s.Sell)+len(s.Lend))
	for _, c := range Categories() {
		out = append(out, *s.bucket(c)...)
	}
	return out
}
