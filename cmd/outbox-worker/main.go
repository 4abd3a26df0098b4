package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/moim/moim-api/internal/config"
	"github.com/moim/moim-api/internal/domain/outbox"
	"github.com/moim/moim-api/internal/pkg/database"
	"github.com/moim/moim-api/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().Msg("Starting outbox-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	worker := outbox.NewWorker(db, outbox.NewRepository(db), outbox.NewRedisPublisher(rdb), cfg.OutboxInterval)
	worker.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info().Msg("Shutting down outbox-worker...")
	worker.Stop()
	log.Info().Msg("Outbox-worker exited properly")
}
