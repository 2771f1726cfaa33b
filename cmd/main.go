package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"office-relay/hub"
	"office-relay/modules/attendance"
	"office-relay/modules/chat"
	"office-relay/modules/meet"
	"office-relay/observability"
	"office-relay/relay"
	"office-relay/runtime/workers"
	"office-relay/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process
// exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Core components
	monitor := observability.NewMonitor(log, config.MetricInterval)
	h := hub.NewHub(log, monitor, config.BufferSize, config.ConnectionBufferSize)
	timers := relay.NewSessionStore()
	monitor.BindGauges(func() (int, int, int) {
		clients, rooms := h.Gauges()
		return clients, rooms, timers.Len()
	})

	// 3. Extension modules & ingress
	chat.Mount(log, h)
	meet.Mount(log, h)
	attendance.Mount(log, h, timers)
	translator := relay.NewTranslator(log, h, timers)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	go sup.Add(h, monitor).Run(ctx)

	// 6. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{
		Addr:    address,
		Handler: server.New(log, translator, h, monitor, config.MaxBodyBytes).Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Forced shutdown", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
