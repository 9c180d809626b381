package auth

import (
	"errors"
	"time"

	"github.com/user/bookmarket-go/shelf"
)

// Address is the structured postal address stored on a user profile.
type Address struct {
	Line1      string `json:"add_line1,omitempty"`
	Line2      string `json:"add_line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Phone is a country-code-qualified mobile number.
type Phone struct {
	CountryCode string `json:"countryCode"`
	PhoneNumber string `json:"phoneNumber"`
}

// CartItem references a catalog book by id. The cart deliberately allows
// the same book to appear more than once.
type CartItem struct {
	BookID string `json:"bookId"`
}

// Cart is an ordered multiset of book references.
type Cart []CartItem

// Add appends a reference. Duplicates are permitted.
func (c *Cart) Add(bookID string) {
	*c = append(*c, CartItem{BookID: bookID})
}

// Contains reports whether at least one entry references bookID.
func (c Cart) Contains(bookID string) bool {
	for _, item := range c {
		if item.BookID == bookID {
			return true
		}
	}
	return false
}

// RemoveAll drops every entry referencing bookID and reports whether
// anything was removed.
func (c *Cart) RemoveAll(bookID string) bool {
	kept := (*c)[:0]
	removed := false
	for _, item := range *c {
		if item.BookID == bookID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	*c = kept
	return removed
}

var (
	// ErrAlreadyWishlisted is returned when adding an item that is
	// already on the wishlist.
	ErrAlreadyWishlisted = errors.New("item is already on the wishlist")
	// ErrNotWishlisted is returned when removing an item that is not
	// on the wishlist.
	ErrNotWishlisted = errors.New("item is not on the wishlist")
)

// Wishlist is an ordered set of item ids. Unlike the cart it rejects
// duplicates.
type Wishlist []string

// Contains reports membership.
func (w Wishlist) Contains(itemID string) bool {
	for _, id := range w {
		if id == itemID {
			return true
		}
	}
	return false
}

// Add appends itemID, rejecting duplicates with ErrAlreadyWishlisted.
func (w *Wishlist) Add(itemID string) error {
	if w.Contains(itemID) {
		return ErrAlreadyWishlisted
	}
	*w = append(*w, itemID)
	return nil
}

// Remove drops itemID, returning ErrNotWishlisted if it is absent.
func (w *Wishlist) Remove(itemID string) error {
	for i, id := range *w {
		if id == itemID {
			*w = append((*w)[:i], (*w)[i+1:]...)
			return nil
		}
	}
	return ErrNotWishlisted
}

// Invoice is a rudimentary purchase record appended at checkout.
type Invoice struct {
	InvoiceID     string    `json:"invoiceId"`
	ItemID        string    `json:"itemId"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
}

// User is the account aggregate: identity, credentials and the embedded
// document collections (cart, wishlist, invoices, shelf).
type User struct {
	ID                int         `json:"id"`
	UserName          string      `json:"userName"`
	Email             string      `json:"email"`
	HashedPassword    string      `json:"-"`
	FirstName         string      `json:"firstName,omitempty"`
	LastName          string      `json:"lastName,omitempty"`
	Address           Address     `json:"address"`
	Phone             Phone       `json:"phone"`
	IsAdmin           bool        `json:"isAdmin"`
	Cart              Cart        `json:"cart"`
	Wishlist          Wishlist    `json:"wishlist"`
	Invoices          []Invoice   `json:"invoices"`
	Shelf             shelf.Shelf `json:"shelf"`
	PasswordChangedAt *time.Time  `json:"-"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// PasswordChangedAfter reports whether the stored password was changed
// after the given instant. Tokens issued before a password change must be
// rejected, so this compares against the token's issued-at time truncated
// to whole seconds (JWT iat has second precision).
func (u *User) PasswordChangedAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Second).After(t.Truncate(time.Second))
}
