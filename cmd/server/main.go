package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/sujalbistaa/raisehand/internal/board"
	"github.com/sujalbistaa/raisehand/internal/config"
	routes "github.com/sujalbistaa/raisehand/internal/http"
	"github.com/sujalbistaa/raisehand/internal/ratelimit"
	"github.com/sujalbistaa/raisehand/internal/store"
	"github.com/sujalbistaa/raisehand/internal/ws"
)

func main() {
	// Must run before config.Load reads the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	snap, closeSnap, err := store.OpenSnapshotter(cfg.SnapshotURL)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer func() {
		if err := closeSnap(); err != nil {
			log.Printf("closing snapshot store: %v", err)
		}
	}()

	st := store.New(ctx, snap)

	limiter := ratelimit.NewLimiter(cfg.Rules)

	initial, err := board.EncodeState(st.PublicView())
	if err != nil {
		log.Fatalf("Failed to encode initial state: %v", err)
	}
	hub := ws.NewHub(initial)
	go hub.Run()

	b := board.New(st, limiter, hub, nil)

	connLimiter := routes.NewIPRateLimiter(rate.Limit(cfg.ConnectRPS), cfg.ConnectBurst)

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				clients := limiter.Sweep()
				ips := connLimiter.Cleanup(cfg.SweepInterval)
				if clients > 0 || ips > 0 {
					log.Printf("sweep: dropped %d idle clients, %d idle IPs", clients, ips)
				}
			}
		}
	}()

	router := gin.New()
	routes.SetupRoutes(router, &routes.Env{
		Board:       b,
		Store:       st,
		Hub:         hub,
		Upgrader:    ws.NewUpgrader(cfg.AllowedOrigins),
		ConnLimiter: connLimiter,
		AdminToken:  cfg.AdminToken,
		CORSOrigin:  cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
