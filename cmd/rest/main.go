package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-be/internal/bootstrap"
	"helpdesk-be/internal/config"
	"helpdesk-be/internal/server"
	"helpdesk-be/internal/tracer"
	"helpdesk-be/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 2. Initialize Database
	var gormDB *gorm.DB
	if cfg.Database.Driver != "memory" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.IsProduction())
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	// 4. Background Services
	g.Go(func() error {
		return container.ChangeFeed.Run(gctx)
	})
	g.Go(func() error {
		container.WebSocketHub.Run(gctx)
		return nil
	})
	if container.TranscriptService != nil {
		g.Go(func() error {
			if err := container.TranscriptService.Consume(gctx); err != nil {
				// transcripts are optional, keep serving
				container.Logger.Error("MAIN", "Transcript consumer failed to start", map[string]interface{}{"error": err.Error()})
			}
			return nil
		})
	}

	// 5. Run Server
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server stopped with error: %v", err)
	}
	log.Println("Server stopped")
}
