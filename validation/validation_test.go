package validation

import (
	"strings"
	"testing"
)

type registration struct {
	Email           string  `validate:"required,email"`
	Password        string  `validate:"required,min=8"`
	PasswordConfirm string  `validate:"required,eqfield=Password"`
	Category        string  `validate:"required,oneof=keep sell lend"`
	Price           float64 `validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		r := registration{
			Email:           "amy@example.com",
			Password:        "secret123",
			PasswordConfirm: "secret123",
			Category:        "sell",
			Price:           12.50,
		}
		if err := Struct(r); err != nil {
			t.Fatalf("Struct returned unexpected error: %v", err)
		}
	})

	t.Run("missing required fields are named", func(t *testing.T) {
		err := Struct(registration{Category: "keep"})
		if err == nil {
			t.Fatal("Struct should fail")
		}
		for _, want := range []string{"Email is required", "Password is required"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("message %q should contain %q", err.Error(), want)
			}
		}
	})

	t.Run("password confirmation mismatch", func(t *testing.T) {
		r := registration{
			Email:           "amy@example.com",
			Password:        "secret123",
			PasswordConfirm: "different",
			Category:        "sell",
		}
		err := Struct(r)
		if err == nil || !strings.Contains(err.Error(), "PasswordConfirm must match Password") {
			t.Errorf("mismatch not reported: %v", err)
		}
	})

	t.Run("oneof lists the allowed values", func(t *testing.T) {
		r := registration{
			Email:           "amy@example.com",
			Password:        "secret123",
			PasswordConfirm: "secret123",
			Category:        "buy",
		}
		err := Struct(r)
		if err == nil || !strings.Contains(err.Error(), "Category must be one of: keep, sell, lend") {
			t.Errorf("oneof not reported: %v", err)
		}
	})

	t.Run("negative price rejected", func(t *testing.T) {
		r := registration{
			Email:           "amy@example.com",
			Password:        "secret123",
			PasswordConfirm: "secret123",
			Category:        "lend",
			Price:           -1,
		}
		err := Struct(r)
		if err == nil || !strings.Contains(err.Error(), "Price must be greater than or equal to 0") {
			t.Errorf("gte not reported: %v", err)
		}
	})

	t.Run("multiple failures joined", func(t *testing.T) {
		err := Struct(registration{Email: "not-an-email", Category: "buy"})
		if err == nil {
			t.Fatal("Struct should fail")
		}
		if !strings.Contains(err.Error(), "; ") {
			t.Errorf("expected joined messages, got %q", err.Error())
		}
	})
}
