package users

import "github.com/user/bookmarket-go/auth"

// UpdateProfileRequest carries the profile fields a user may change.
// Pointer fields distinguish "leave as is" from "set to empty". Email and
// password deliberately have no place here; they move through the auth
// flows only.
type UpdateProfileRequest struct {
	UserName  *string       `json:"userName" validate:"omitempty,min=3,max=40"`
	FirstName *string       `json:"firstName"`
	LastName  *string       `json:"lastName"`
	Address   *auth.Address `json:"address"`
	Phone     *auth.Phone   `json:"phone"`
}

// AddToCartRequest references the book to add.
type AddToCartRequest struct {
	BookID string `json:"bookId"`
}

// AddToWishlistRequest references the item to add.
type AddToWishlistRequest struct {
	ItemID string `json:"itemId"`
}

// CheckoutRequest selects the payment method for a rudimentary checkout.
type CheckoutRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=card cash transfer"`
}
