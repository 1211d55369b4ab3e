// Package main is the entry point for the pixelbuffer demo server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ngffio/pixelbuffer/internal/api"
	"github.com/ngffio/pixelbuffer/internal/cache"
	"github.com/ngffio/pixelbuffer/internal/config"
	"github.com/ngffio/pixelbuffer/internal/pixelbuffer"
)

func main() {
	configPath := flag.String("config", "config/pixelserver.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting pixelbuffer server on port %d", cfg.Server.Port)

	ctx := context.Background()

	cacheManager, err := cache.NewManager(cache.Config{
		TileCacheSizeMB: cfg.Cache.TileSizeMB,
		TileTTL:         time.Duration(cfg.Cache.TileTTLMinutes) * time.Minute,
		QueryCacheSize:  1000,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	metadataCache, err := pixelbuffer.NewMetadataCache(cfg.Cache.MetadataCacheSize)
	if err != nil {
		log.Fatalf("Failed to initialize metadata cache: %v", err)
	}
	arrayCache, err := pixelbuffer.NewArrayCache(cfg.Cache.ArrayCacheSize)
	if err != nil {
		log.Fatalf("Failed to initialize array cache: %v", err)
	}

	rootNames := cfg.Roots.RootNames()
	registry := api.NewRootRegistry(cfg.Roots.Default, cfg.Server.Title, metadataCache, arrayCache)

	log.Printf("Registering %d root(s), default: %s", len(rootNames), cfg.Roots.Default)

	for _, name := range rootNames {
		root := cfg.Roots.Roots[name]

		pixels := pixelbuffer.Pixels{
			SizeX: root.SizeX,
			SizeY: root.SizeY,
			SizeZ: root.SizeZ,
			SizeC: root.SizeC,
			SizeT: root.SizeT,
		}
		registry.Register(name, root.URI, pixels, root.MaxPlaneWidth, root.MaxPlaneHeight)

		// Open once at startup so a misconfigured root fails fast rather
		// than surfacing on the first request.
		pb, err := pixelbuffer.New(ctx, pixels, root.URI, root.MaxPlaneWidth, root.MaxPlaneHeight, metadataCache, arrayCache)
		if err != nil {
			log.Fatalf("Failed to open root %q at %s: %v", name, root.URI, err)
		}
		planeBytes := uint64(pb.SizeX()) * uint64(pb.SizeY()) * uint64(pb.ByteWidth())
		log.Printf("  [%s] %s: %dx%dx%dx%dx%d, %d resolution level(s), %s/plane",
			name, root.URI, pb.SizeX(), pb.SizeY(), pb.SizeZ(), pb.SizeC(), pb.SizeT(), pb.ResolutionLevels(),
			humanize.Bytes(planeBytes))
		pb.Close()
	}

	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		Cache:       cacheManager,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	cacheManager.Close()

	log.Println("Server stopped")
}
