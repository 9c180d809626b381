// Package users manages the account's owned collections: profile fields,
// the cart, the wishlist and invoices. Every mutation runs inside a
// transaction that row-locks the user, so concurrent updates to the same
// document columns cannot lose writes.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/user/bookmarket-go/apperror"
	"github.com/user/bookmarket-go/auth"
	"github.com/user/bookmarket-go/validation"
)

// UserService implements profile and collection operations.
type UserService struct {
	pool *pgxpool.Pool
}

// NewUserService creates a UserService.
func NewUserService(pool *pgxpool.Pool) *UserService {
	return &UserService{pool: pool}
}

// withUser runs fn against a row-locked copy of the user inside a
// transaction. fn mutates the user in place and returns the document
// columns to write back; the helper persists them and commits.
func (s *UserService) withUser(ctx context.Context, userID int, fn func(u *auth.User) error) (*auth.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		"SELECT "+auth.UserColumns+" FROM users WHERE id = $1 FOR UPDATE", userID)
	user, err := auth.ScanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to load user", err)
	}

	if err := fn(user); err != nil {
		return nil, err
	}

	cartJSON, err := json.Marshal(user.Cart)
	if err != nil {
		return nil, apperror.NewInternalError("failed to encode cart", err)
	}
	wishlistJSON, err := json.Marshal(user.Wishlist)
	if err != nil {
		return nil, apperror.NewInternalError("failed to encode wishlist", err)
	}
	invoicesJSON, err := json.Marshal(user.Invoices)
	if err != nil {
		return nil, apperror.NewInternalError("failed to encode invoices", err)
	}
	shelfJSON, err := json.Marshal(user.Shelf)
	if err != nil {
		return nil, apperror.NewInternalError("failed to encode shelf", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET cart = $1, wishlist = $2, invoices = $3, shelf = $4 WHERE id = $5`,
		cartJSON, wishlistJSON, invoicesJSON, shelfJSON, userID,
	)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to persist user collections", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit transaction", err)
	}
	return user.Sanitize(), nil
}

// UpdateProfile applies the provided profile fields. Only fields present
// in the request are touched.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, req UpdateProfileRequest) (*auth.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperror.NewValidationError(err.Error(), nil)
	}

	set := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.UserName != nil {
		var taken bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)",
			*req.UserName, userID).Scan(&taken)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to check username", err)
		}
		if taken {
			return nil, apperror.NewBadRequestError("this username is already taken", nil)
		}
		add("username", *req.UserName)
	}
	if req.FirstName != nil {
		add("first_name", *req.FirstName)
	}
	if req.LastName != nil {
		add("last_name", *req.LastName)
	}
	if req.Address != nil {
		addressJSON, err := json.Marshal(req.Address)
		if err != nil {
			return nil, apperror.NewInternalError("failed to encode address", err)
		}
		add("address", addressJSON)
	}
	if req.Phone != nil {
		add("phone_country_code", req.Phone.CountryCode)
		add("phone_number", req.Phone.PhoneNumber)
	}
	if len(set) == 0 {
		return nil, apperror.NewBadRequestError("no profile fields provided", nil)
	}

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), auth.UserColumns)

	row := s.pool.QueryRow(ctx, query, args...)
	user, err := auth.ScanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update profile", err)
	}
	return user.Sanitize(), nil
}

// AddToCart appends a book reference to the cart. Duplicates are allowed;
// the only check is that the book actually exists in the catalog.
func (s *UserService) AddToCart(ctx context.Context, userID int, bookID string) (*auth.User, error) {
	if uuid.Validate(bookID) != nil {
		return nil, apperror.NewBadRequestError("bookId is not a valid book id", nil)
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)", bookID).Scan(&exists)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to check book", err)
	}
	if !exists {
		return nil, apperror.NewNotFoundError("no book found with that id", nil)
	}

	return s.withUser(ctx, userID, func(u *auth.User) error {
		u.Cart.Add(bookID)
		return nil
	})
}

// RemoveFromCart drops every cart entry referencing bookID. Removing an
// id that is not in the cart is not an error; the cart simply stays put.
func (s *UserService) RemoveFromCart(ctx context.Context, userID int, bookID string) (*auth.User, error) {
	return s.withUser(ctx, userID, func(u *auth.User) error {
		u.Cart.RemoveAll(bookID)
		return nil
	})
}

// AddToWishlist appends an item id, enforcing set semantics.
func (s *UserService) AddToWishlist(ctx context.Context, userID int, itemID string) (*auth.User, error) {
	return s.withUser(ctx, userID, func(u *auth.User) error {
		if err := u.Wishlist.Add(itemID); err != nil {
			return apperror.NewBadRequestError("this item is already on your wishlist", err)
		}
		return nil
	})
}

// RemoveFromWishlist drops an item id.
func (s *UserService) RemoveFromWishlist(ctx context.Context, userID int, itemID string) (*auth.User, error) {
	return s.withUser(ctx, userID, func(u *auth.User) error {
		if err := u.Wishlist.Remove(itemID); err != nil {
			return apperror.NewNotFoundError("this item is not on your wishlist", err)
		}
		return nil
	})
}

// Checkout converts the cart into invoices and empties it. The book
// prices are read inside the same transaction, so a concurrent price
// update cannot split an order across two prices.
func (s *UserService) Checkout(ctx context.Context, userID int, req CheckoutRequest) (*auth.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperror.NewValidationError(err.Error(), nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		"SELECT "+auth.UserColumns+" FROM users WHERE id = $1 FOR UPDATE", userID)
	user, err := auth.ScanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to load user", err)
	}

	if len(user.Cart) == 0 {
		return nil, apperror.NewBadRequestError("your cart is empty", nil)
	}

	now := time.Now()
	for _, item := range user.Cart {
		var price float64
		err := tx.QueryRow(ctx, "SELECT price FROM books WHERE id = $1", item.BookID).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperror.NewBadRequestError(
					"a book in your cart is no longer available: "+item.BookID, nil)
			}
			return nil, apperror.NewDatabaseError("failed to price cart item", err)
		}
		user.Invoices = append(user.Invoices, auth.Invoice{
			InvoiceID:     uuid.NewString(),
			ItemID:        item.BookID,
			Date:          now,
			Amount:        price,
			PaymentMethod: req.PaymentMethod,
		})
	}
	purchased := len(user.Cart)
	user.Cart = auth.Cart{}

	cartJSON, err := json.Marshal(user.Cart)
	if err != nil {
		return nil, apperror.NewInternalError("failed to encode cart", err)
	}
	invoicesJSON, err := json.Marshal(user.Invoices)
	if err != nil {
		return nil, apperror.NewInternalError("failed to encode invoices", err)
	}
	_, err = tx.Exec(ctx,
		"UPDATE users SET cart = $1, invoices = $2 WHERE id = $3",
		cartJSON, invoicesJSON, userID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to persist checkout", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit checkout", err)
	}
	log.Info().Int("user_id", userID).Int("items", purchased).Msg("checkout completed")
	return user.Sanitize(), nil
}
