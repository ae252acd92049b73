package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/studysync/studysync/auth"
	"github.com/studysync/studysync/config"
	"github.com/studysync/studysync/db"
	"github.com/studysync/studysync/handlers"
	"github.com/studysync/studysync/realtime"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	store, err := db.Open(cfg.DB.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.AllowAnonymous)

	hub := realtime.NewHub(logger)
	registry := realtime.NewRegistry(hub, store.Rooms, store.Messages,
		cfg.Room.HistoryLimit, cfg.Room.GraceDelay, logger)
	socketHandler := realtime.NewSocketHandler(hub, registry, verifier, logger)

	roomHandler := handlers.NewRoomHandler(store, registry, logger)
	authHandler := handlers.NewAuthHandler(store.Users, verifier, logger)

	// Periodically collect rooms whose teardown was missed.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.Room.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := registry.Sweep(); n > 0 {
					logger.Info("swept empty rooms", zap.Int("count", n))
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	router := gin.Default()

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "StudySync API is running")
	})

	router.GET("/ws", socketHandler.Handle)

	api := router.Group("/api")
	{
		api.POST("/auth/signup", authHandler.Signup)
		api.POST("/auth/login", authHandler.Login)

		rooms := api.Group("/rooms", auth.Middleware(verifier))
		{
			rooms.GET("", roomHandler.ListRooms)
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:name", roomHandler.GetRoom)
			rooms.POST("/:name/verify-password", roomHandler.VerifyPassword)
			rooms.DELETE("/:name", roomHandler.DeleteRoom)
		}
	}

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("server closed")
}

func newLogger(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = lvl
	}
	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
