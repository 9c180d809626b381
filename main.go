// Command bookmarket runs the used-book marketplace API: accounts and
// sessions, per-user carts, wishlists and shelves, the public catalog with
// filter and search, and the admin inventory view.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/user/bookmarket-go/apperror"
	"github.com/user/bookmarket-go/auth"
	"github.com/user/bookmarket-go/background"
	"github.com/user/bookmarket-go/books"
	"github.com/user/bookmarket-go/config"
	"github.com/user/bookmarket-go/db"
	"github.com/user/bookmarket-go/live"
	"github.com/user/bookmarket-go/logging"
	"github.com/user/bookmarket-go/mail"
	"github.com/user/bookmarket-go/users"
)

func main() {
	// Load .env before logging so LOG_LEVEL/LOG_FORMAT from the file apply.
	envErr := godotenv.Load()
	logging.Init()
	if envErr != nil {
		// Not fatal; production sets variables directly.
		log.Debug().Err(envErr).Msg(".env file not loaded")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.EnableExtensions(pool); err != nil {
		log.Fatal().Err(err).Msg("failed to enable database extensions")
	}
	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Wire the services together, manual constructor injection all the way.
	tokenService := auth.NewTokenService(cfg.Auth)
	mailer := mail.NewSMTPMailer(cfg.Mail)
	authService := auth.NewAuthService(pool, tokenService, mailer, cfg.Auth)
	guard := auth.NewGuard(tokenService, authService)
	authHandlers := auth.NewHandlers(authService, cfg.Auth.CookieDuration)

	userService := users.NewUserService(pool)
	userHandlers := users.NewHandlers(userService)

	feed := live.NewBroadcaster()
	bookService := books.NewBookService(pool, feed)
	bookHandlers := books.NewHandlers(bookService, feed)

	auditorStop := make(chan struct{})
	background.StartShelfAuditor(pool, authService, auditorStop)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/user", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/signup", authHandlers.HandleSignup())
		r.Post("/login", authHandlers.HandleLogin())
		r.Post("/logout", authHandlers.HandleLogout())
		r.Post("/forgotPassword", authHandlers.HandleForgotPassword())
		r.Patch("/resetPassword/{token}", authHandlers.HandleResetPassword())

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireUser)
			r.Patch("/changePassword", authHandlers.HandleChangePassword())
			r.Get("/profile", userHandlers.HandleGetProfile())
			r.Patch("/profile", userHandlers.HandleUpdateProfile())
			r.Get("/cart", userHandlers.HandleGetCart())
			r.Post("/cart", userHandlers.HandleAddToCart())
			r.Delete("/cart/{bookId}", userHandlers.HandleRemoveFromCart())
			r.Get("/wishlist", userHandlers.HandleGetWishlist())
			r.Post("/wishlist", userHandlers.HandleAddToWishlist())
			r.Delete("/wishlist/{itemId}", userHandlers.HandleRemoveFromWishlist())
			r.Post("/checkout", userHandlers.HandleCheckout())
		})
	})

	router.Route("/book", func(r chi.Router) {
		// The SSE feed stays outside the timeout group; it holds its
		// connection open until the client goes away.
		r.Get("/feed", bookHandlers.HandleFeed())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/getAllBook", bookHandlers.HandleGetAllBooks())
			r.Post("/filter", bookHandlers.HandleFilter())
			r.Get("/search={query}", bookHandlers.HandleSearch())

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireUser)
				r.Post("/addBook", bookHandlers.HandleAddBook())
				r.Post("/removeBook/{id}", bookHandlers.HandleRemoveBook())
				r.Patch("/updateBook/{id}", bookHandlers.HandleUpdateBook())
				r.Post("/getBookById/{id}", bookHandlers.HandleGetBookByID())
			})
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(guard.RequireUser)
		r.Use(guard.RequireAdmin)
		r.Get("/getAllBooks", bookHandlers.HandleGetAllBooks())
		r.Get("/inventoryBook", bookHandlers.HandleInventory())
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteError(w, r, apperror.NewNotFoundError(
			"can't find "+r.URL.Path+" on this server", nil))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteError(w, r, apperror.NewBadRequestError(
			r.Method+" is not allowed on "+r.URL.Path, nil))
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	close(auditorStop)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// recoverer turns a handler panic into the uniform 500 envelope instead of
// a dropped connection.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				auth.WriteError(w, r, apperror.NewInternalError("something went very wrong", nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
