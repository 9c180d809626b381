package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/user/bookmarket-go/apperror"
	"github.com/user/bookmarket-go/live"
	"github.com/user/bookmarket-go/shelf"
	"github.com/user/bookmarket-go/validation"
)

// BookService implements catalog operations. Mutations that touch the
// owner's shelf run in a transaction holding the user row lock so the
// shelf and the books table cannot drift apart.
type BookService struct {
	pool *pgxpool.Pool
	feed *live.Broadcaster
}

// NewBookService creates a BookService.
func NewBookService(pool *pgxpool.Pool, feed *live.Broadcaster) *BookService {
	return &BookService{pool: pool, feed: feed}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// validBookID guards uuid-typed query parameters; an invalid id is a 404,
// not a database error.
func validBookID(bookID string) error {
	if uuid.Validate(bookID) != nil {
		return apperror.NewNotFoundError("no book found with that id", nil)
	}
	return nil
}

// scanBook populates a Book from a row selected with bookColumns.
func scanBook(row rowScanner) (*Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title.Main, &b.Title.Sub, &b.Author, &b.Description, &b.Price,
		&b.Images.Main, &b.Images.Img1, &b.Images.Img2,
		&b.Genre, &b.Condition, &b.Category, &b.UserID, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// lockShelf reads the owner's shelf under FOR UPDATE inside tx.
func lockShelf(ctx context.Context, tx pgx.Tx, userID int) (*shelf.Shelf, error) {
	var raw []byte
	err := tx.QueryRow(ctx, "SELECT shelf FROM users WHERE id = $1 FOR UPDATE", userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to lock user shelf", err)
	}
	var s shelf.Shelf
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperror.NewInternalError("failed to decode shelf", err)
		}
	}
	return &s, nil
}

// saveShelf writes the shelf back inside tx.
func saveShelf(ctx context.Context, tx pgx.Tx, userID int, s *shelf.Shelf) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return apperror.NewInternalError("failed to encode shelf", err)
	}
	if _, err := tx.Exec(ctx, "UPDATE users SET shelf = $1 WHERE id = $2", raw, userID); err != nil {
		return apperror.NewDatabaseError("failed to persist shelf", err)
	}
	return nil
}

// Create inserts a listing and places it on the owner's shelf.
func (s *BookService) Create(ctx context.Context, ownerID int, req CreateBookRequest) (*Book, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperror.NewValidationError(err.Error(), nil)
	}
	if req.Title.Main == "" {
		return nil, apperror.NewValidationError("title.main is required", nil)
	}
	category, err := shelf.ParseCategory(req.Category)
	if err != nil {
		return nil, apperror.NewBadRequestError(
			fmt.Sprintf("category must be one of %v", shelf.Categories()), err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	ownerShelf, err := lockShelf(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	bookID := uuid.NewString()
	row := tx.QueryRow(ctx, `
		INSERT INTO books (id, main_title, sub_title, author, description, price,
			main_img, img1, img2, genre, condition, category, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+bookColumns,
		bookID, req.Title.Main, req.Title.Sub, req.Author, req.Description, req.Price,
		req.Images.Main, req.Images.Img1, req.Images.Img2,
		req.Genre, req.Condition, string(category), ownerID,
	)
	book, err := scanBook(row)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create book", err)
	}

	if err := ownerShelf.Place(bookID, category); err != nil {
		return nil, apperror.NewBadRequestError(err.Error(), err)
	}
	if err := saveShelf(ctx, tx, ownerID, ownerShelf); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit transaction", err)
	}

	log.Info().Str("book_id", book.ID).Int("user_id", ownerID).Str("category", string(category)).Msg("book listed")
	s.feed.Publish(live.Event{Name: "bookCreated", Data: book})
	return book, nil
}

// Update applies a partial update to an owned listing. A category change
// reconciles the owner's shelf in the same transaction.
func (s *BookService) Update(ctx context.Context, userID int, bookID string, req UpdateBookRequest) (*Book, error) {
	if err := validBookID(bookID); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, apperror.NewValidationError(err.Error(), nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id = $1 FOR UPDATE", bookID)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("no book found with that id", nil)
		}
		return nil, apperror.NewDatabaseError("failed to load book", err)
	}
	if book.UserID != userID {
		return nil, apperror.NewUnauthorizedError("you can only update your own books", nil)
	}

	oldCategory := book.Category
	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.Price != nil {
		book.Price = *req.Price
	}
	if req.Images != nil {
		book.Images = *req.Images
	}
	if req.Genre != nil {
		book.Genre = *req.Genre
	}
	if req.Condition != nil {
		book.Condition = *req.Condition
	}
	if req.Category != nil {
		category, err := shelf.ParseCategory(*req.Category)
		if err != nil {
			return nil, apperror.NewBadRequestError(
				fmt.Sprintf("category must be one of %v", shelf.Categories()), err)
		}
		book.Category = category
	}

	if book.Category != oldCategory {
		ownerShelf, err := lockShelf(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		if err := ownerShelf.Reassign(bookID, oldCategory, book.Category); err != nil {
			return nil, apperror.NewBadRequestError(err.Error(), err)
		}
		if err := saveShelf(ctx, tx, userID, ownerShelf); err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE books SET main_title = $1, sub_title = $2, author = $3, description = $4,
			price = $5, main_img = $6, img1 = $7, img2 = $8,
			genre = $9, condition = $10, category = $11
		WHERE id = $12`,
		book.Title.Main, book.Title.Sub, book.Author, book.Description,
		book.Price, book.Images.Main, book.Images.Img1, book.Images.Img2,
		book.Genre, book.Condition, string(book.Category), bookID,
	)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update book", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit transaction", err)
	}
	return book, nil
}

// Delete removes an owned listing and takes it off the shelf.
func (s *BookService) Delete(ctx context.Context, userID int, bookID string) error {
	if err := validBookID(bookID); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var ownerID int
	err = tx.QueryRow(ctx, "SELECT user_id FROM books WHERE id = $1 FOR UPDATE", bookID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewNotFoundError("no book found with that id", nil)
		}
		return apperror.NewDatabaseError("failed to load book", err)
	}
	if ownerID != userID {
		return apperror.NewUnauthorizedError("you can only remove your own books", nil)
	}

	ownerShelf, err := lockShelf(ctx, tx, userID)
	if err != nil {
		return err
	}
	ownerShelf.Remove(bookID)
	if err := saveShelf(ctx, tx, userID, ownerShelf); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM books WHERE id = $1", bookID); err != nil {
		return apperror.NewDatabaseError("failed to delete book", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewDatabaseError("failed to commit transaction", err)
	}
	log.Info().Str("book_id", bookID).Int("user_id", userID).Msg("book removed")
	return nil
}

// GetByID fetches one listing.
func (s *BookService) GetByID(ctx context.Context, bookID string) (*Book, error) {
	if err := validBookID(bookID); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id = $1", bookID)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("no book found with that id", nil)
		}
		return nil, apperror.NewDatabaseError("failed to load book", err)
	}
	return book, nil
}

func (s *BookService) collect(ctx context.Context, query string, args ...any) ([]*Book, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to query books", err)
	}
	defer rows.Close()

	result := make([]*Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to scan book", err)
		}
		result = append(result, book)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read books", err)
	}
	return result, nil
}

// GetAll returns a page of listings, newest first.
func (s *BookService) GetAll(ctx context.Context, page PageRequest) ([]*Book, error) {
	page.Normalize()
	return s.collect(ctx,
		"SELECT "+bookColumns+" FROM books ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		page.Limit, page.Offset())
}

// Filter returns listings matching every provided criterion exactly.
func (s *BookService) Filter(ctx context.Context, req FilterRequest, page PageRequest) ([]*Book, error) {
	if req.Category != nil {
		if _, err := shelf.ParseCategory(*req.Category); err != nil {
			return nil, apperror.NewBadRequestError(
				fmt.Sprintf("category must be one of %v", shelf.Categories()), err)
		}
	}
	page.Normalize()
	query, args := buildFilterQuery(req, page)
	return s.collect(ctx, query, args...)
}

// Search runs the free-text search, dispatching on the query shape.
func (s *BookService) Search(ctx context.Context, query string, page PageRequest) ([]*Book, error) {
	if query == "" {
		return nil, apperror.NewBadRequestError("search query is required", nil)
	}
	page.Normalize()
	sql, args := buildSearchQuery(query, page)
	return s.collect(ctx, sql, args...)
}

// Inventory summarizes the catalog per shelf category for admins.
func (s *BookService) Inventory(ctx context.Context) ([]InventoryRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(price), 0)
		FROM books GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to query inventory", err)
	}
	defer rows.Close()

	result := make([]InventoryRow, 0, len(shelf.Categories()))
	for rows.Next() {
		var r InventoryRow
		if err := rows.Scan(&r.Category, &r.Count, &r.TotalPrice); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan inventory row", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read inventory", err)
	}
	return result, nil
}
