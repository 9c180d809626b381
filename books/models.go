// Package books is the catalog: listing CRUD, the exact-match filter, the
// free-text search and the admin inventory view. Every listing belongs to
// a user and is mirrored onto that user's shelf.
package books

import (
	"time"

	"github.com/user/bookmarket-go/shelf"
)

// Title splits a book title into its main and optional sub part.
type Title struct {
	Main string `json:"main"`
	Sub  string `json:"sub,omitempty"`
}

// Images holds the cover and up to two extra photos of the physical copy.
type Images struct {
	Main string `json:"main,omitempty"`
	Img1 string `json:"img1,omitempty"`
	Img2 string `json:"img2,omitempty"`
}

// Book is a catalog listing.
type Book struct {
	ID          string         `json:"id"`
	Title       Title          `json:"title"`
	Author      string         `json:"author"`
	Description string         `json:"description,omitempty"`
	Price       float64        `json:"price"`
	Images      Images         `json:"images"`
	Genre       string         `json:"genre"`
	Condition   string         `json:"condition"`
	Category    shelf.Category `json:"category"`
	UserID      int            `json:"userId"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// InventoryRow is one line of the admin inventory summary: how many
// listings sit in each shelf category, and their combined asking price.
type InventoryRow struct {
	Category   shelf.Category `json:"category"`
	Count      int            `json:"count"`
	TotalPrice float64        `json:"totalPrice"`
}
