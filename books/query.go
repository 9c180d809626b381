package books

import (
	"fmt"
	"strings"
)

// bookColumns is the canonical select list for scanning a Book row.
// Keep in sync with scanBook.
const bookColumns = `id, main_title, sub_title, author, description, price,
	main_img, img1, img2, genre, condition, category, user_id, created_at`

// fulltextExpr feeds both search modes; it must stay in sync with the GIN
// index expression in the migrations.
const fulltextExpr = `concat_ws(' ', main_title, sub_title, author, description, genre, category)`

// buildFilterQuery turns a FilterRequest into a WHERE clause over exact
// matches. Nil criteria contribute nothing; an empty request selects
// everything in the page window.
func buildFilterQuery(f FilterRequest, page PageRequest) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if f.TitleMain != nil {
		add("main_title", *f.TitleMain)
	}
	if f.TitleSub != nil {
		add("sub_title", *f.TitleSub)
	}
	if f.Author != nil {
		add("author", *f.Author)
	}
	if f.Price != nil {
		add("price", *f.Price)
	}
	if f.Genre != nil {
		add("genre", *f.Genre)
	}
	if f.Category != nil {
		add("category", *f.Category)
	}

	query := "SELECT " + bookColumns + " FROM books"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, page.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, page.Offset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))
	return query, args
}

// buildSearchQuery dispatches on the shape of the query string: a single
// token becomes a case-insensitive substring match across the indexed
// fields, while multiple tokens become a full-text relevance search
// ranked by ts_rank.
func buildSearchQuery(raw string, page PageRequest) (string, []any) {
	tokens := strings.Fields(raw)

	if len(tokens) <= 1 {
		token := raw
		if len(tokens) == 1 {
			token = tokens[0]
		}
		fields := []string{"main_title", "sub_title", "author", "description", "genre", "category"}
		conds := make([]string, len(fields))
		for i, field := range fields {
			conds[i] = field + " ILIKE $1"
		}
		query := "SELECT " + bookColumns + " FROM books WHERE (" +
			strings.Join(conds, " OR ") + ") ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		return query, []any{"%" + token + "%", page.Limit, page.Offset()}
	}

	query := "SELECT " + bookColumns + " FROM books WHERE " +
		"to_tsvector('english', " + fulltextExpr + ") @@ plainto_tsquery('english', $1) " +
		"ORDER BY ts_rank(to_tsvector('english', " + fulltextExpr + "), plainto_tsquery('english', $1)) DESC " +
		"LIMIT $2 OFFSET $3"
	return query, []any{raw, page.Limit, page.Offset()}
}
