// Command devserver runs the reference chat backend: the REST API, the
// websocket-token endpoint, and the two WebSocket channels the client
// library connects to. Intended for local development and integration
// testing.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"forumchat/internal/config"
	"forumchat/internal/httpserver"
	"forumchat/internal/hub"
	"forumchat/internal/security"
	"forumchat/internal/service"
	"forumchat/internal/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.WSTokenTTLSeconds)*time.Second)
	passwordHasher := security.NewPasswordHasher(0)

	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey))
	if err != nil {
		log.Fatalf("failed to initialize encryptor: %v", err)
	}

	if cfg.Env == "development" {
		if err := seedDemoUsers(db, passwordHasher); err != nil {
			log.Fatalf("failed to seed demo users: %v", err)
		}
	}

	h := hub.NewHub()
	router := httpserver.NewRouter(cfg, db, h, tokenSvc, passwordHasher, encryptor)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting %s on %s", cfg.AppName, cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// seedDemoUsers provisions one candidate and one recruiter account when the
// database is empty, so the CLI can be tried out immediately.
func seedDemoUsers(db *sql.DB, hasher *security.PasswordHasher) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	users := sqlite.NewUserRepo(db)
	authSvc := service.NewAuthService(users, hasher)
	ctx := context.Background()

	if _, err := authSvc.Register(ctx, service.RegisterInput{
		Email:    "alice@example.com",
		Name:     "Alice Martin",
		Role:     "candidate",
		Password: "password123",
	}); err != nil {
		return err
	}
	if _, err := authSvc.Register(ctx, service.RegisterInput{
		Email:       "bob@acme.example",
		Name:        "Bob Durand",
		Role:        "recruiter",
		CompanyName: "ACME Corp",
		Password:    "password123",
	}); err != nil {
		return err
	}

	log.Println("seeded demo users alice@example.com and bob@acme.example (password123)")
	return nil
}
