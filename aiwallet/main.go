package main

import (
	"aiwallet/aiwallet/app"
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/middlewares"
	"aiwallet/aiwallet/routes"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	defer logging.Sync()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logging.AppLogger.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.AppLogger.Error("startup failed", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	healthCtrl := controllers.NewHealthController(a.HealthChecks())
	authCtrl := controllers.NewAuthController(a.UserDAO, cfg)
	userCtrl := controllers.NewUserController(a.UserDAO)
	agentsCtrl := controllers.NewAgentsController(a.Agent)
	chatCtrl := controllers.NewChatController(a.Agent, a.Convs, a.ChatDAO, a.SessionDAO)
	walletsCtrl := controllers.NewWalletsController(a.WalletsDeps())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Mount("/health", routes.HealthRoutes(healthCtrl))
	r.Mount("/auth", routes.AuthRoutes(authCtrl))
	r.Mount("/users", routes.UserRoutes(userCtrl, cfg))
	r.Mount("/api", routes.AgentRoutes(agentsCtrl, cfg))
	r.Mount("/chat", routes.ChatRoutes(chatCtrl, cfg))
	r.Mount("/wallets", routes.WalletRoutes(walletsCtrl, cfg))

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.AppLogger.Error("server listen error", zap.Error(err))
			os.Exit(1)
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.AppLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
