package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/josecalvo/rubi/backend/internal/config"
	"github.com/josecalvo/rubi/backend/internal/db"
	"github.com/josecalvo/rubi/backend/internal/handler"
	"github.com/josecalvo/rubi/backend/internal/handler/stream"
	"github.com/josecalvo/rubi/backend/internal/logger"
	"github.com/josecalvo/rubi/backend/internal/service/ai"
	chatService "github.com/josecalvo/rubi/backend/internal/service/chat"
	"github.com/josecalvo/rubi/backend/internal/service/games"
	gamService "github.com/josecalvo/rubi/backend/internal/service/gamification"
	"github.com/josecalvo/rubi/backend/internal/service/learning"
	profileService "github.com/josecalvo/rubi/backend/internal/service/profile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync()

	if envErr != nil {
		log.Warn("no .env file loaded, using system environment", "error", envErr)
	}

	gdb, err := db.Open(cfg.Postgres, log)
	if err != nil {
		log.Fatal("database unavailable", "error", err)
	}

	chatSvc := chatService.NewService(gdb)
	profileSvc := profileService.NewService(gdb)
	gamSvc := gamService.NewService(gdb, log)

	if err := gamSvc.SeedAchievements(ctx); err != nil {
		log.Fatal("seed achievements", "error", err)
	}

	var gameStore games.StateStore
	if cfg.Redis.Enabled() {
		redisStore, err := games.NewRedisStateStore(cfg.Redis.Addr)
		if err != nil {
			log.Fatal("redis unavailable", "addr", cfg.Redis.Addr, "error", err)
		}
		defer redisStore.Close()
		gameStore = redisStore
		log.Info("game state in redis", "addr", cfg.Redis.Addr)
	} else {
		gameStore = games.NewMemoryStateStore()
		log.Info("game state in process memory")
	}
	engine := games.NewEngine(gameStore)

	var replier stream.Replier
	var learner stream.Learner
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI, log)
		if err != nil {
			log.Warn("ai service unavailable, chat streaming disabled", "error", err)
		} else {
			replier = aiSvc
			learner = learning.NewExtractor(aiSvc, log)
			log.Info("ai service ready", "model", cfg.AI.Model)
		}
	} else {
		log.Warn("ark credentials not configured, chat streaming disabled")
	}

	router := handler.NewRouter(handler.Deps{
		Replier:         replier,
		Learner:         learner,
		ChatSvc:         chatSvc,
		ProfileSvc:      profileSvc,
		GamSvc:          gamSvc,
		Engine:          engine,
		StreamTimeout:   time.Duration(cfg.AI.StreamTimeout) * time.Second,
		LearningEnabled: cfg.Learning.Enabled,
		Log:             log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("rubi backend listening", "addr", cfg.Server.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", "error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
