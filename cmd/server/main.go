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

	"github.com/vipulpandey12345/member-qa-system-api/internal/api"
	"github.com/vipulpandey12345/member-qa-system-api/internal/config"
	"github.com/vipulpandey12345/member-qa-system-api/internal/core"
	"github.com/vipulpandey12345/member-qa-system-api/internal/corpus"
	"github.com/vipulpandey12345/member-qa-system-api/internal/ingest"
	"github.com/vipulpandey12345/member-qa-system-api/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for one-shot corpus ingestion
	ingestFlag := flag.Bool("ingest", false, "Fetch and ingest the message corpus, then exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService, err := core.NewLLMService(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize LLM service: %v", err)
	}
	defer llmService.Close()

	// Corpus snapshot holder and refresher
	snapshots := corpus.NewHolder(nil)
	var refresher *ingest.Refresher
	if config.AppConfig.MessagesAPIURL != "" {
		client := ingest.NewClient(config.AppConfig.MessagesAPIURL)
		refresher = ingest.NewRefresher(client, dbStore, llmService, snapshots)
	}

	// Handle one-shot ingestion if flag is set
	if *ingestFlag {
		if refresher == nil {
			log.Fatal("MESSAGES_API_URL is required for ingestion")
		}
		log.Println("Starting corpus ingestion...")
		n, err := refresher.RefreshNow(context.Background())
		if err != nil {
			log.Fatalf("Corpus ingestion failed: %v", err)
		}
		log.Printf("Corpus ingestion complete. Ingested %d new messages. Exiting.", n)
		os.Exit(0)
	}

	// Publish the persisted corpus before serving traffic.
	if refresher != nil {
		if err := refresher.Bootstrap(); err != nil {
			log.Fatalf("Failed to bootstrap corpus snapshot: %v", err)
		}
		if err := refresher.Start(config.AppConfig.RefreshSchedule); err != nil {
			log.Fatalf("Failed to start corpus refresher: %v", err)
		}
		defer refresher.Stop()
	} else {
		log.Println("MESSAGES_API_URL not set; serving from the persisted corpus only")
		records, err := dbStore.GetAllMessages()
		if err != nil {
			log.Fatalf("Failed to load persisted corpus: %v", err)
		}
		snapshots.Swap(corpus.Build(records))
	}

	// Assemble the ask pipeline from configured thresholds.
	askService := core.NewAskService(
		snapshots,
		core.NewNormalizer(config.AppConfig.MinTokens),
		core.NewNameClassifier(config.AppConfig.FuzzyNameFloor),
		core.NewRelevanceFilter(config.AppConfig.QualityCutoff),
		core.NewRetriever(llmService, config.AppConfig.RetrievalK),
		core.NewSynthesizer(llmService, config.AppConfig.LLMTimeout),
	)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(askService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
