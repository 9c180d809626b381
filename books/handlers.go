package books

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/user/bookmarket-go/apperror"
	"github.com/user/bookmarket-go/auth"
	"github.com/user/bookmarket-go/live"
)

// Handlers wraps the BookService with HTTP handlers.
type Handlers struct {
	service *BookService
	feed    *live.Broadcaster
}

// NewHandlers creates a Handlers instance.
func NewHandlers(service *BookService, feed *live.Broadcaster) *Handlers {
	return &Handlers{service: service, feed: feed}
}

func pageFromQuery(r *http.Request) PageRequest {
	var page PageRequest
	page.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	page.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	page.Normalize()
	return page
}

// HandleAddBook creates a listing owned by the logged-in user.
func (h *Handlers) HandleAddBook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("you are not logged in! please log in to get access", nil))
			return
		}

		var req CreateBookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		book, err := h.service.Create(r.Context(), user.ID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusCreated, map[string]*Book{"book": book})
	}
}

// HandleUpdateBook applies a partial update to an owned listing.
func (h *Handlers) HandleUpdateBook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("you are not logged in! please log in to get access", nil))
			return
		}

		var req UpdateBookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		book, err := h.service.Update(r.Context(), user.ID, chi.URLParam(r, "id"), req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]*Book{"book": book})
	}
}

// HandleRemoveBook deletes an owned listing.
func (h *Handlers) HandleRemoveBook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("you are not logged in! please log in to get access", nil))
			return
		}

		if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, nil)
	}
}

// HandleGetBookByID fetches one listing.
func (h *Handlers) HandleGetBookByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		book, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]*Book{"book": book})
	}
}

// HandleGetAllBooks returns a page of the catalog.
func (h *Handlers) HandleGetAllBooks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		books, err := h.service.GetAll(r.Context(), pageFromQuery(r))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]any{
			"results": len(books),
			"books":   books,
		})
	}
}

// HandleFilter runs the structured exact-match filter.
func (h *Handlers) HandleFilter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FilterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		books, err := h.service.Filter(r.Context(), req, pageFromQuery(r))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]any{
			"results": len(books),
			"books":   books,
		})
	}
}

// HandleSearch runs the free-text search. The query rides in the path,
// e.g. GET /book/search=harry potter.
func (h *Handlers) HandleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := chi.URLParam(r, "query")
		books, err := h.service.Search(r.Context(), query, pageFromQuery(r))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]any{
			"results": len(books),
			"books":   books,
		})
	}
}

// HandleInventory returns the per-category inventory summary for admins.
func (h *Handlers) HandleInventory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := h.service.Inventory(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, map[string]any{"inventory": rows})
	}
}

// HandleFeed streams new-listing events over Server-Sent Events until the
// client disconnects.
func (h *Handlers) HandleFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			auth.WriteError(w, r, apperror.NewInternalError("streaming is not supported", nil))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		id, events := h.feed.Subscribe()
		defer h.feed.Unsubscribe(id)

		for {
			select {
			case <-r.Context().Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				payload, err := event.Marshal()
				if err != nil {
					log.Error().Err(err).Str("event", event.Name).Msg("failed to encode feed event")
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, payload)
				flusher.Flush()
			}
		}
	}
}
