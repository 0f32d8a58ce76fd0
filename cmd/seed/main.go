// Command seed fills the database at DB_PATH with a demo catalogue and
// fake participants.
//
//	go run ./cmd/seed -participants 30
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/challenge-tracker/internal/config"
	sqliteRepo "github.com/sakif/challenge-tracker/internal/repository/sqlite"
	"github.com/sakif/challenge-tracker/internal/seed"
	"github.com/sakif/challenge-tracker/internal/service"
)

func main() {
	participants := flag.Int("participants", 20, "number of fake users to create")
	seedValue := flag.Int64("seed", 0, "random seed (0 = random)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqliteRepo.New(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	users, challenges, progress := db.Users(), db.Challenges(), db.Progress()
	seeder := seed.New(
		service.NewChallengeService(challenges, logger),
		service.NewProgressService(challenges, users, progress, loc, logger),
		users,
		seed.Options{Participants: *participants, Seed: *seedValue},
		logger,
	)

	if _, err := seeder.Run(context.Background()); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}
}
