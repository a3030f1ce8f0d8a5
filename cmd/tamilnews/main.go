package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tamilnews/internal/config"
	"tamilnews/internal/content"
	"tamilnews/internal/database"
	"tamilnews/internal/ingest"
	"tamilnews/internal/server"
	"tamilnews/internal/summarize"
	"tamilnews/internal/translate"
)

var (
	// Version will be set during build
	Version = "dev"

	// Command line flags
	port        = flag.Int("port", 0, "Port to run the server on (default: 8080 or TAMILNEWS_PORT)")
	dbPath      = flag.String("db", "", "Path to database file (default: data/tamilnews.db or TAMILNEWS_DB_PATH)")
	sourcesPath = flag.String("sources", "", "Path to a YAML source list (default: built-in sources or TAMILNEWS_SOURCES_PATH)")
	version     = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("tamilnews version %s\n", Version)
		return
	}

	logger := log.New(os.Stdout, "tamilnews: ", log.LstdFlags|log.Lshortfile)

	cfg := config.GetConfig()
	if *port > 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *sourcesPath != "" {
		cfg.SourcesPath = *sourcesPath
	}

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.Fatalf("Failed to load sources: %v", err)
	}

	logger.Printf("Starting tamilnews v%s", Version)
	logger.Printf("Port: %d", cfg.Port)
	logger.Printf("Database: %s", cfg.DBPath)
	logger.Printf("Sources: %d configured", len(sources))
	if cfg.GeminiAPIKey == "" {
		logger.Printf("Warning: GEMINI_API_KEY not set; summaries fall back to feed descriptions")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.NewDB(cfg.DBPath, database.DefaultConfig())
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Summarization client doubles as the last-resort translation
	// backend.
	client := summarize.NewClient(cfg)

	cascade := translate.NewCascade(logger,
		translate.NewWebBackend(),
		translate.NewAPIBackend(cfg.TranslateAPIKey),
		translate.NewLLMBackend(client.Generate),
	)

	engine := summarize.NewEngine(logger, client, cascade)

	cache, err := translate.NewCache(logger, cascade, db,
		translate.DefaultCacheSize, translate.DefaultBudget)
	if err != nil {
		logger.Fatalf("Failed to initialize translation cache: %v", err)
	}

	resolver := content.NewResolver(logger)
	ingestSvc := ingest.NewService(logger, db, resolver, engine, sources, cfg.MaxEntryAge)
	ingestSvc.Start(cfg.FetchInterval)
	defer ingestSvc.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(logger, db, cache)
	if err := srv.Start(ctx, cfg.GetAddress()); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Printf("Shutdown complete")
}
