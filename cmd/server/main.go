// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deAdler-alt/ai-piraci/internal/api"
	"github.com/deAdler-alt/ai-piraci/internal/app"
	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/di"
)

func main() {
	log.Println("starting ai-piraci server...")

	cfg, err := config.Init()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	log.Printf("configuration loaded, port: %s", cfg.Port)

	createDirectories(cfg)

	if err := app.InitLogging(cfg.LogDir); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}

	if err := app.InitServices(); err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	log.Println("services initialized")

	if err := performHealthCheck(); err != nil {
		log.Printf("service health check warning: %v", err)
	}

	router, err := api.SetupRouter()
	if err != nil {
		log.Fatalf("failed to set up routes: %v", err)
	}

	log.Printf("server listening on port %s", cfg.Port)
	setupGracefulShutdown(router, cfg.Port)
}

func performHealthCheck() error {
	container := di.GetContainer()

	criticalServices := []string{"llm", "game", "flow", "storage"}

	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("critical service not registered: %s", serviceName)
		}
	}

	return nil
}

func setupGracefulShutdown(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced server shutdown: %v", err)
	}

	log.Println("server stopped")
}

func createDirectories(cfg *config.AppConfig) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "games"),
		cfg.LogDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}
}
