package users

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/bookmarket-go/apperror"
	"github.com/user/bookmarket-go/auth"
)

// Handlers wraps the UserService with HTTP handlers. All routes here sit
// behind the access guard, so the user is always on the context.
type Handlers struct {
	service *UserService
}

// NewHandlers creates a Handlers instance.
func NewHandlers(service *UserService) *Handlers {
	return &Handlers{service: service}
}

func currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("you are not logged in! please log in to get access", nil))
		return nil, false
	}
	return user, true
}

// HandleGetProfile returns the logged-in user's own record.
func (h *Handlers) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]*auth.User{"user": user.Sanitize()})
	}
}

// HandleUpdateProfile applies a partial profile update.
func (h *Handlers) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		updated, err := h.service.UpdateProfile(r.Context(), user.ID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]*auth.User{"user": updated})
	}
}

// HandleGetCart lists the cart.
func (h *Handlers) HandleGetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]auth.Cart{"cart": user.Cart})
	}
}

// HandleAddToCart appends a book to the cart.
func (h *Handlers) HandleAddToCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req AddToCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()
		if req.BookID == "" {
			auth.WriteError(w, r, apperror.NewBadRequestError("bookId is required", nil))
			return
		}

		updated, err := h.service.AddToCart(r.Context(), user.ID, req.BookID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]auth.Cart{"cart": updated.Cart})
	}
}

// HandleRemoveFromCart removes all cart entries for a book.
func (h *Handlers) HandleRemoveFromCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		bookID := chi.URLParam(r, "bookId")
		updated, err := h.service.RemoveFromCart(r.Context(), user.ID, bookID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]auth.Cart{"cart": updated.Cart})
	}
}

// HandleGetWishlist lists the wishlist.
func (h *Handlers) HandleGetWishlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]auth.Wishlist{"wishlist": user.Wishlist})
	}
}

// HandleAddToWishlist appends an item, rejecting duplicates.
func (h *Handlers) HandleAddToWishlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req AddToWishlistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()
		if req.ItemID == "" {
			auth.WriteError(w, r, apperror.NewBadRequestError("itemId is required", nil))
			return
		}

		updated, err := h.service.AddToWishlist(r.Context(), user.ID, req.ItemID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]auth.Wishlist{"wishlist": updated.Wishlist})
	}
}

// HandleRemoveFromWishlist removes an item.
func (h *Handlers) HandleRemoveFromWishlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		itemID := chi.URLParam(r, "itemId")
		updated, err := h.service.RemoveFromWishlist(r.Context(), user.ID, itemID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]auth.Wishlist{"wishlist": updated.Wishlist})
	}
}

// HandleCheckout turns the cart into invoices.
func (h *Handlers) HandleCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		updated, err := h.service.Checkout(r.Context(), user.ID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]any{
			"invoices": updated.Invoices,
			"cart":     updated.Cart,
		})
	}
}
