package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"bookhub/internal/config"
	apphttp "bookhub/internal/http"
	"bookhub/internal/importer"
	"bookhub/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dbPool := mustOpenDB(cfg.DatabaseDSN)
	defer dbPool.Close()

	userRepository := store.NewUserPG(dbPool, cfg.RepoTimeout)
	authorRepository := store.NewAuthorPG(dbPool, cfg.RepoTimeout)
	bookRepository := store.NewBookPG(dbPool, cfg.RepoTimeout)

	authHandler := apphttp.NewAuthHandler(userRepository, cfg.JWTSecret, cfg.TokenTTL)
	authorHandler := apphttp.NewAuthorHandler(authorRepository)
	bookHandler := apphttp.NewBookHandler(bookRepository)
	importHandler := apphttp.NewImportHandler(importer.NewService(authorRepository, bookRepository))

	requireAuth := apphttp.AuthMiddleware(cfg.JWTSecret)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := dbPool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("POST /v1/api/auth/register", authHandler.Register)
	router.HandleFunc("POST /v1/api/auth/token", authHandler.Token)
	router.Handle("GET /v1/api/me", requireAuth(http.HandlerFunc(authHandler.Me)))

	// Reads are public; mutations need a bearer token.
	router.HandleFunc("GET /v1/api/authors", authorHandler.List)
	router.HandleFunc("GET /v1/api/authors/{id}", authorHandler.Get)
	router.Handle("POST /v1/api/authors", requireAuth(http.HandlerFunc(authorHandler.Create)))
	router.Handle("PUT /v1/api/authors/{id}", requireAuth(http.HandlerFunc(authorHandler.Update)))
	router.Handle("DELETE /v1/api/authors/{id}", requireAuth(http.HandlerFunc(authorHandler.Delete)))

	router.HandleFunc("GET /v1/api/books", bookHandler.List)
	router.HandleFunc("GET /v1/api/books/search", bookHandler.Search)
	router.HandleFunc("GET /v1/api/books/{id}", bookHandler.Get)
	router.Handle("POST /v1/api/books", requireAuth(http.HandlerFunc(bookHandler.Create)))
	router.Handle("PUT /v1/api/books/{id}", requireAuth(http.HandlerFunc(bookHandler.Update)))
	router.Handle("DELETE /v1/api/books/{id}", requireAuth(http.HandlerFunc(bookHandler.Delete)))
	router.Handle("POST /v1/api/books/import", requireAuth(http.HandlerFunc(importHandler.Import)))

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      apphttp.RequestLogger(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("cannot create db pool: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Fatalf("cannot ping database (%s): %v", redactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
