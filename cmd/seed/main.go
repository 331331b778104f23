// seed creates an admin user, or promotes an existing user to admin. Idempotent.
//
//	go run ./cmd/seed -email admin@example.com -password 'change-me'
//
// The password is only used when the user does not exist yet.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"session-auth-service/internal/config"
	"session-auth-service/internal/db"
	identityservice "session-auth-service/internal/identity/service"
	"session-auth-service/internal/logger"
	"session-auth-service/internal/security"
	sessionrepo "session-auth-service/internal/session/repository"
	sessionservice "session-auth-service/internal/session/service"
	userdomain "session-auth-service/internal/user/domain"
	userrepo "session-auth-service/internal/user/repository"
)

func main() {
	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password (new users only)")
	fullName := flag.String("name", "Administrator", "full name for a new user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, "seed")
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	if *email == "" {
		log.Fatal().Msg("-email is required")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	tokens, err := security.NewTokenProvider(security.TokenConfig{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("tokens")
	}
	hasher := security.NewHasher(security.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	}, cfg.HashConcurrency)
	auth := identityservice.NewAuthService(users, sessionservice.NewManager(sessionrepo.NewPostgresRepository(pool)), hasher, tokens, identityservice.Policy{}, nil)

	if err := seedAdmin(ctx, auth, users, *email, *password, *fullName); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
}

// seedAdmin registers email if needed and makes sure it has the admin role.
func seedAdmin(ctx context.Context, auth *identityservice.AuthService, users userrepo.Repository, email, password, fullName string) error {
	u, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		if len(password) < 6 {
			return errors.New("-password of at least 6 characters is required for a new user")
		}
		if u, err = auth.Register(ctx, email, password, fullName); err != nil {
			return err
		}
		log.Info().Str("user_id", u.ID).Msg("user created")
	}
	if u.Role == userdomain.RoleAdmin {
		log.Info().Str("user_id", u.ID).Msg("user is already admin; nothing to do")
		return nil
	}
	admin := userdomain.RoleAdmin
	if err := users.Update(ctx, u.ID, userdomain.Update{Role: &admin}); err != nil {
		return err
	}
	log.Info().Str("user_id", u.ID).Str("email", email).Msg("user promoted to admin")
	return nil
}
