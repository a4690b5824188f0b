package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/letteros/letteros/internal/api"
	"github.com/letteros/letteros/internal/app"
	"github.com/letteros/letteros/internal/config"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  LetterOS API Server                                       ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	app.ConfigureLogging(cfg.Logging)

	if err := checkPortAvailable(cfg.Server.GetHost(), cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.Close()
	log.Printf("Storage backend: %s", cfg.Storage.Backend)
	log.Printf("LLM provider: %s", cfg.LLM.Provider)

	if rec := a.Reconciler(); rec != nil && cfg.Outbox.RunInServer {
		go rec.Run(ctx)
		log.Println("Outbox reconciler started in-process")
	}

	var ob api.OutboxStats
	if a.Outbox != nil {
		ob = a.Outbox
	}

	server := api.NewServer(cfg.Server, api.Deps{
		Auth:        a.Auth,
		Products:    a.Products,
		Newsletters: a.Newsletters,
		Subscribers: a.Subscribers,
		Imports:     a.Imports,
		Planner:     a.Planner,
		Generator:   a.Generator,
		Wizards:     a.Wizards,
		Health:      api.NewHealthChecker(a.DB, a.Redis, ob),
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
