package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"docchat-be/internal/bootstrap"
	"docchat-be/internal/config"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/server"
	"docchat-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, cfg.App.OtelEndpoint)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database (only when a backend needs it)
	gormDB, err := bootstrap.OpenDatabase(cfg)
	if err != nil {
		log.Panicf("Unable to open database: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	container, err := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	if err != nil {
		log.Fatalf("Unable to build container: %v", err)
	}
	defer container.Close()

	// 5. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Rag.IngestAsync {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Fatalf("Background Consumer Error: %v", err)
		}
	}

	// 6. Initialize and run Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
