package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collision-engine/internal/api"
	"collision-engine/internal/config"
	"collision-engine/internal/engine"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("📦 ================================")
	log.Println("📦  COLLISION ENGINE - GO SERVICE")
	log.Println("📦  Adaptive AABB detection")
	log.Println("📦 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	engineCfg := appConfig.Engine
	monitorCfg := appConfig.Monitor
	serverCfg := appConfig.Server

	sel := engineCfg.Selector
	log.Printf("🎯 Selector thresholds: naive ≤%d, spatial ≤%d, overlap-heavy ≥%.2f",
		sel.TNaive, sel.TSpatial, sel.OverlapHeavy)
	log.Printf("🗂️ Cache: enabled=%t capacity=%d ttl=%s | Pool: enabled=%t maxPerKind=%d",
		engineCfg.Cache.Enabled, engineCfg.Cache.Capacity, engineCfg.Cache.TTL,
		engineCfg.Pool.Enabled, engineCfg.Pool.MaxPerKind)
	if engineCfg.CellSize > 0 {
		log.Printf("🔲 Grid cell size: %.1f (fixed)", engineCfg.CellSize)
	} else {
		log.Println("🔲 Grid cell size: auto (median object extent per call)")
	}

	eng, err := engine.NewWithMonitor(engineCfg, monitorCfg)
	if err != nil {
		log.Fatalf("❌ Invalid engine configuration: %v", err)
	}

	// Start debug server (pprof + Prometheus metrics, localhost only)
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(eng, serverCfg)

	go func() {
		if err := server.Start(serverCfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("🌐 Detection API: http://localhost:%d/api/detect", serverCfg.Port)
	log.Printf("📊 Live stats feed: ws://localhost:%d/ws", serverCfg.Port)

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Shutdown error: %v", err)
	}
	log.Println("👋 Goodbye!")
}
