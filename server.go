package departures

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
	"github.com/theoremus-urban-solutions/gtfs-departures/config"
	"github.com/theoremus-urban-solutions/gtfs-departures/refresh"
)

var (
	server *http.Server
)

// Handlers serves the board computed by a refresh controller.
type Handlers struct {
	Board      config.BoardConfig
	Engine     *board.Engine
	Static     refresh.StaticSource
	Realtime   refresh.RealtimeSource
	Controller *refresh.Controller

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

// Routes builds the HTTP mux.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", h.handleHealth)
	mux.HandleFunc("/api/departures", h.handleDepartures)
	mux.HandleFunc("/api/stop", h.handleStop)
	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}
	return mux
}

func StartServer(port int, h *Handlers) {
	addr := fmt.Sprintf(":%d", port)
	server = &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)
}

// HandleGracefulShutdown blocks until SIGINT or SIGTERM, cancels the
// background workers and shuts the HTTP servers down.
func HandleGracefulShutdown(cancel context.CancelFunc, extra ...*http.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	cancel()
	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	for _, srv := range append([]*http.Server{server}, extra...) {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v", err)
		} else {
			log.Printf("server %s shut down successfully", srv.Addr)
		}
	}
}
