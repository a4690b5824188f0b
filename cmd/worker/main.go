package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/letteros/letteros/internal/app"
	"github.com/letteros/letteros/internal/config"
)

func main() {
	log.Println("Starting LetterOS worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	app.ConfigureLogging(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.Close()

	var wg sync.WaitGroup

	if rec := a.Reconciler(); rec != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(ctx)
		}()
		log.Printf("Outbox reconciler started (poll %s, remote timeout %s)",
			cfg.Outbox.PollInterval(), cfg.Outbox.RemoteTimeout())
	} else {
		log.Println("Outbox reconciler not started (redis not configured)")
	}

	if cfg.Mailing.Enabled {
		sched, err := a.Scheduler(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize mailing scheduler: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Mailing scheduler stopped: %v", err)
			}
		}()
		log.Printf("Mailing scheduler started (every %s)", cfg.Mailing.PollInterval())
	} else {
		log.Println("Mailing scheduler disabled")
	}

	log.Println("Worker running...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		log.Println("Timed out waiting for background loops")
	}

	log.Println("Worker stopped")
}
