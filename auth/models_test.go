package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCartAllowsDuplicates(t *testing.T) {
	var c Cart
	c.Add("b1")
	c.Add("b2")
	c.Add("b1")

	if len(c) != 3 {
		t.Fatalf("len(cart) = %d, want 3", len(c))
	}
	if !c.Contains("b1") || !c.Contains("b2") {
		t.Error("cart should contain both b1 and b2")
	}
}

func TestCartRemoveAll(t *testing.T) {
	c := Cart{{BookID: "b1"}, {BookID: "b2"}, {BookID: "b1"}}

	if removed := c.RemoveAll("b1"); !removed {
		t.Error("RemoveAll(b1) = false, want true")
	}
	if len(c) != 1 || c[0].BookID != "b2" {
		t.Errorf("cart after removal = %v, want just b2", c)
	}
	if removed := c.RemoveAll("missing"); removed {
		t.Error("RemoveAll of an absent id = true, want false")
	}
}

func TestWishlistRejectsDuplicates(t *testing.T) {
	var w Wishlist
	if err := w.Add("i1"); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	if err := w.Add("i1"); !errors.Is(err, ErrAlreadyWishlisted) {
		t.Errorf("duplicate Add error = %v, want ErrAlreadyWishlisted", err)
	}
	if len(w) != 1 {
		t.Errorf("len(wishlist) = %d, want 1", len(w))
	}
}

func TestWishlistRemove(t *testing.T) {
	w := Wishlist{"i1", "i2", "i3"}
	if err := w.Remove("i2"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if len(w) != 2 || w[0] != "i1" || w[1] != "i3" {
		t.Errorf("wishlist after removal = %v, want [i1 i3]", w)
	}
	if err := w.Remove("i2"); !errors.Is(err, ErrNotWishlisted) {
		t.Errorf("second Remove error = %v, want ErrNotWishlisted", err)
	}
}

func TestPasswordChangedAfter(t *testing.T) {
	issued := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never changed", func(t *testing.T) {
		u := &User{}
		if u.PasswordChangedAfter(issued) {
			t.Error("user without a change timestamp should not invalidate tokens")
		}
	})

	t.Run("changed after issuance", func(t *testing.T) {
		changed := issued.Add(time.Minute)
		u := &User{PasswordChangedAt: &changed}
		if !u.PasswordChangedAfter(issued) {
			t.Error("change after issuance should invalidate the token")
		}
	})

	t.Run("changed before issuance", func(t *testing.T) {
		changed := issued.Add(-time.Minute)
		u := &User{PasswordChangedAt: &changed}
		if u.PasswordChangedAfter(issued) {
			t.Error("change before issuance should not invalidate the token")
		}
	})

	t.Run("sub-second skew ignored", func(t *testing.T) {
		// JWT iat has second precision; a change within the same second
		// must not invalidate the token that was just issued with it.
		changed := issued.Add(500 * time.Millisecond)
		u := &User{PasswordChangedAt: &changed}
		if u.PasswordChangedAfter(issued) {
			t.Error("change within the issuance second should not invalidate the token")
		}
	})
}

func TestUserJSONHidesSecrets(t *testing.T) {
	now := time.Now()
	u := User{
		ID:                7,
		UserName:          "amy",
		Email:             "a@x.com",
		HashedPassword:    "$2a$12$abcdefghijklmnopqrstuv",
		PasswordChangedAt: &now,
	}
	raw, err := json.Marshal(&u)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, "password") || strings.Contains(body, "$2a$") {
		t.Errorf("serialized user leaks password material: %s", body)
	}
}
