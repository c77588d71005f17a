// Command overlay runs the synthetic detection overlay service: a
// deterministic entity-motion and label-layout engine streamed to browser
// clients over websockets, with an HTTP API for tuning at runtime.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/engine"
	"github.com/banshee-data/overlay.report/internal/hud/visualiser"
	"github.com/banshee-data/overlay.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	configPath    = flag.String("config", config.DefaultConfigPath, "Path to tuning config JSON")
	fps           = flag.Float64("fps", 60, "Frame rate for the engine loop")
	width         = flag.Int("w", 1280, "Initial viewport width in pixels")
	height        = flag.Int("h", 720, "Initial viewport height in pixels")
	seed          = flag.Int64("seed", 0, "Random seed (0 = clock-seeded)")
	reducedMotion = flag.Bool("reduced-motion", false, "Start paused and never animate")
	maxClients    = flag.Int("max-clients", 8, "Maximum concurrent websocket clients")
)

func main() {
	flag.Parse()

	log.Printf("overlay %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}

	engineCfg := engine.EngineConfigFromTuning(tuning)
	if *seed != 0 {
		engineCfg.Seed = *seed
	}
	eng := engine.NewEngine(engineCfg, *width, *height, *reducedMotion)

	pubCfg := visualiser.DefaultConfig()
	pubCfg.MaxClients = *maxClients
	publisher := visualiser.NewPublisher(pubCfg)
	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start publisher: %v", err)
	}
	defer publisher.Stop()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Engine loop: tick at the configured rate and hand frames to the
	// publisher for fan-out.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := eng.Run(ctx, *fps, publisher.Publish); err != nil && err != context.Canceled {
			log.Printf("engine loop error: %v", err)
		}
		log.Print("engine loop terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := NewWebServer(eng, publisher).ServeMux()
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
