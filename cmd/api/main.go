package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/moim/moim-api/internal/config"
	"github.com/moim/moim-api/internal/domain/auth"
	"github.com/moim/moim-api/internal/domain/gifticon"
	"github.com/moim/moim-api/internal/domain/outbox"
	"github.com/moim/moim-api/internal/domain/point"
	"github.com/moim/moim-api/internal/domain/user"
	"github.com/moim/moim-api/internal/middleware"
	"github.com/moim/moim-api/internal/pkg/database"
	"github.com/moim/moim-api/internal/pkg/jwt"
	"github.com/moim/moim-api/internal/pkg/logger"
	"github.com/moim/moim-api/internal/realtime"
)

func main() {
	cfg := config.Load()

	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// Repositories
	userRepo := user.NewRepository(db)
	pointRepo := point.NewRepository(db)
	gifticonRepo := gifticon.NewRepository(db)
	outboxRepo := outbox.NewRepository(db)

	// Services
	pointService := point.NewService(pointRepo, rewardTable(cfg), outboxRepo)
	authService := auth.NewService(db, userRepo, pointService, jwtService)
	gifticonService := gifticon.NewService(db, gifticonRepo, pointService)

	// Handlers
	authHandler := auth.NewHandler(authService)
	pointHandler := point.NewHandler(pointService)
	gifticonHandler := gifticon.NewHandler(gifticonService)

	// Realtime hub fans balance change events out to connected clients.
	hub := realtime.NewHub(redisClient, point.TopicBalanceChanged)
	go hub.Run()
	wsHandler := realtime.NewHandler(hub)

	authMiddleware := middleware.Auth(jwtService)
	adminMiddleware := middleware.RequireAdmin()

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/ws", wsHandler.ServeWS)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/points", pointHandler.Routes(authMiddleware))
		r.Mount("/gifticons", gifticonHandler.Routes(authMiddleware, adminMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// rewardTable applies the configured overrides on top of the defaults.
func rewardTable(cfg *config.Config) point.RewardTable {
	table := point.DefaultRewardTable()
	table[point.EventSignup] = cfg.SignupRewardPoints
	table[point.EventPostCreated] = cfg.PostRewardPoints
	table[point.EventCommentCreated] = cfg.CommentRewardPoints
	return table
}
