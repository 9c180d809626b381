package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/bookmarket-go/auth"
	"github.com/user/bookmarket-go/validation"
)

func TestHandlersRejectAnonymous(t *testing.T) {
	h := NewHandlers(NewUserService(nil))

	endpoints := map[string]http.HandlerFunc{
		"get profile":          h.HandleGetProfile(),
		"update profile":       h.HandleUpdateProfile(),
		"get cart":             h.HandleGetCart(),
		"add to cart":          h.HandleAddToCart(),
		"remove from cart":     h.HandleRemoveFromCart(),
		"get wishlist":         h.HandleGetWishlist(),
		"add to wishlist":      h.HandleAddToWishlist(),
		"remove from wishlist": h.HandleRemoveFromWishlist(),
		"checkout":             h.HandleCheckout(),
	}
	for name, handler := range endpoints {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestHandleGetProfile(t *testing.T) {
	h := NewHandlers(NewUserService(nil))

	req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &auth.User{
		ID:       3,
		UserName: "amy",
		Email:    "a@x.com",
	}))
	rec := httptest.NewRecorder()
	h.HandleGetProfile()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			User *auth.User `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("envelope status = %q, want success", resp.Status)
	}
	if resp.Data.User == nil || resp.Data.User.UserName != "amy" {
		t.Errorf("response user = %+v, want amy", resp.Data.User)
	}
}

func TestCheckoutRequestValidation(t *testing.T) {
	cases := []struct {
		name    string
		req     CheckoutRequest
		wantErr bool
	}{
		{"card accepted", CheckoutRequest{PaymentMethod: "card"}, false},
		{"cash accepted", CheckoutRequest{PaymentMethod: "cash"}, false},
		{"transfer accepted", CheckoutRequest{PaymentMethod: "transfer"}, false},
		{"unknown method rejected", CheckoutRequest{PaymentMethod: "barter"}, true},
		{"missing method rejected", CheckoutRequest{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validation.Struct(tc.req)
			if (err != nil) != tc.wantErr {
				t.Errorf("Struct(%+v) error = %v, wantErr %v", tc.req, err, tc.wantErr)
			}
		})
	}
}
