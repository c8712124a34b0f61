package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Herutriana44/kangtani.ai/internal/adapter/llm"
	"github.com/Herutriana44/kangtani.ai/internal/adapter/stt"
	"github.com/Herutriana44/kangtani.ai/internal/config"
	"github.com/Herutriana44/kangtani.ai/internal/preprocess/audio"
	"github.com/Herutriana44/kangtani.ai/internal/preprocess/document"
	"github.com/Herutriana44/kangtani.ai/internal/repository"
	"github.com/Herutriana44/kangtani.ai/internal/service"
	handler "github.com/Herutriana44/kangtani.ai/internal/transport/http"
	"github.com/Herutriana44/kangtani.ai/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting Kangtani.ai gateway...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Model server: %s (model %s)", cfg.OllamaURL, cfg.Model)
	log.Printf("Transcription backend: %s", cfg.STTBackend)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize model client
	llmClient, err := llm.NewLLMClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize model client: %v", err)
	}

	// Initialize pre-processors
	transcriber, err := stt.NewTranscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize transcriber: %v", err)
	}
	audioProcessor := audio.NewProcessor(transcriber)
	documentParser := document.NewParser()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, llmClient, audioProcessor, documentParser, cfg, policyEngine)

	// Probe the model server once so a misconfigured URL shows up at startup.
	if h := svc.Health(ctx); h.Status != "healthy" {
		log.Printf("WARN: model server not reachable yet: %s", h.Error)
	}

	server := handler.NewServer(svc, cfg)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Gateway started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Gateway stopped")
}
