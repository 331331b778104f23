// migrate applies the embedded SQL migrations: go run ./cmd/migrate -direction up|down.
package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"session-auth-service/internal/config"
	"session-auth-service/internal/db/migrate"
	"session-auth-service/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, "migrate")
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("migrate")
	}
	version, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("read migration version")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Str("direction", *direction).Msg("migrations applied")
}
