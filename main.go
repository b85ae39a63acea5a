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

	"github.com/Rudranshpardeshi09/StudyMind-AI/api"
	"github.com/Rudranshpardeshi09/StudyMind-AI/chunking"
	"github.com/Rudranshpardeshi09/StudyMind-AI/config"
	"github.com/Rudranshpardeshi09/StudyMind-AI/embeddings"
	"github.com/Rudranshpardeshi09/StudyMind-AI/extract"
	"github.com/Rudranshpardeshi09/StudyMind-AI/ingestion"
	"github.com/Rudranshpardeshi09/StudyMind-AI/jobs"
	"github.com/Rudranshpardeshi09/StudyMind-AI/llm"
	"github.com/Rudranshpardeshi09/StudyMind-AI/rag"
	"github.com/Rudranshpardeshi09/StudyMind-AI/vectorstore"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := llm.NewClient(cfg, logger)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	manager := vectorstore.NewManager(cfg.IndexDir, embedder, logger)
	tracker := jobs.NewTracker(jobs.NewMemoryStore())
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	ingestSvc := ingestion.NewService(cfg.UploadDir, manager, tracker, extract.NewFileExtractor(), splitter, logger, cfg.IngestQueue)
	ingestSvc.Start(ctx, cfg.IngestWorkers)
	defer ingestSvc.Close()

	ragSvc := rag.NewService(manager, embedder, llmClient, logger, rag.Options{
		TopK:        cfg.TopK,
		FetchK:      cfg.FetchK,
		Lambda:      0.9,
		Temperature: float32(cfg.LLM.Temperature),
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	server := api.New(ingestSvc, ragSvc, tracker, logger, cfg.MaxUploadSize)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s (embeddings %s/%s, llm %s)", cfg.Addr, cfg.Embeddings.Provider, cfg.Embeddings.Model, cfg.LLM.Provider)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
	logger.Println("server stopped")
}
