// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/engramhq/engram-mcp/internal/backup"
	"github.com/engramhq/engram-mcp/internal/cognitive"
	"github.com/engramhq/engram-mcp/internal/config"
	"github.com/engramhq/engram-mcp/internal/database"
	"github.com/engramhq/engram-mcp/internal/embeddings"
	"github.com/engramhq/engram-mcp/internal/server"
	"github.com/engramhq/engram-mcp/pkg/scheduler"
)

// Version is set at build time via ldflags (e.g. goreleaser -X main.Version={{.Version}}).
var Version string

func main() {
	// CRITICAL: MCP servers must ONLY output JSON-RPC to stdout
	// Redirect all logging to stderr
	log.SetOutput(os.Stderr)

	httpMode := flag.Bool("http", false, "Run in HTTP server mode (default: stdio for MCP)")
	configPath := flag.String("config", "", "Path to config file")
	dbType := flag.String("db-type", "", "Database type (sqlite or postgres)")
	dbPath := flag.String("db-path", "", "Database path (for sqlite)")
	dbDSN := flag.String("db-dsn", "", "Database DSN (for postgres)")
	port := flag.Int("port", 0, "Server port (HTTP mode only)")

	// Embedding flags
	enableEmbeddings := flag.Bool("enable-embeddings", false, "Enable semantic search with embeddings")
	embeddingURL := flag.String("embedding-url", "", "Embedding API base URL")
	embeddingModel := flag.String("embedding-model", "", "Embedding model name")
	embeddingKey := flag.String("embedding-key", "", "Embedding API key (alternative to env var)")

	// Backup flags
	backupNow := flag.Bool("backup-now", false, "Take a backup snapshot and exit")
	restoreBackup := flag.Bool("restore", false, "Restore memories from the backup directory and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Engram MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Server Mode:\n")
		fmt.Fprintf(os.Stderr, "  %s                        Start MCP server (stdio)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --http                 Start HTTP server with /mcp and /healthz\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nBackup:\n")
		fmt.Fprintf(os.Stderr, "  %s --backup-now           Take a backup snapshot and exit\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --restore              Restore memories from backup and exit\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEmbeddings:\n")
		fmt.Fprintf(os.Stderr, "  %s --enable-embeddings    Enable semantic search with embeddings\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE            Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH            SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN             PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  PORT               Server port (HTTP mode only)\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     OpenAI API key (required when embeddings enabled)\n")
	}

	flag.Parse()

	if *backupNow && *restoreBackup {
		log.Fatal("ERROR: --backup-now and --restore cannot be used together")
	}
	if (*backupNow || *restoreBackup) && *httpMode {
		log.Fatal("ERROR: backup flags cannot be combined with --http")
	}

	log.Println("Starting Engram MCP Server...")

	// Load configuration
	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
		if err != nil {
			log.Printf("Warning: Failed to load config from %s: %v", *configPath, err)
			log.Println("Using defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Printf("Loaded configuration from %s", *configPath)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			log.Printf("Warning: Failed to load default config: %v", err)
			log.Println("Using built-in defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Printf("Loaded configuration from ~/.engram/configs/config.json")
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Apply CLI flag overrides (highest priority)
	applyCLIOverrides(cfg, *dbType, *dbPath, *dbDSN, *port)
	applyEmbeddingCLIOverrides(cfg, *enableEmbeddings, *embeddingURL, *embeddingModel, *embeddingKey)

	log.Printf("Configuration: database=%s", cfg.Database.Type)

	// Connect to the database
	db, err := database.Connect(&database.Config{
		Type:        cfg.Database.Type,
		SQLitePath:  cfg.Database.SQLitePath,
		PostgresDSN: cfg.Database.PostgresDSN,
		LogLevel:    logger.Silent, // CRITICAL: Silence GORM stdout output for MCP
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.Ping(db); err != nil {
		log.Fatalf("Database is not reachable: %v", err)
	}
	log.Printf("Connected to database: %s", cfg.Database.Type)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := embeddings.MigrateEmbeddings(db); err != nil {
		log.Fatalf("Failed to run embedding migrations: %v", err)
	}

	log.Println("Database migrations completed")

	if err := database.CreateIndexes(db); err != nil {
		log.Printf("Warning: Failed to create indexes: %v", err)
	}
	if err := embeddings.CreateEmbeddingIndexes(db); err != nil {
		log.Printf("Warning: Failed to create embedding indexes: %v", err)
	}

	store := database.NewStore(db)

	// BACKUP MODES: run the one-shot operation and exit
	if *backupNow || *restoreBackup {
		mgr, err := backup.NewManager(store, cfg.Backup.Path, cfg.Backup.Author, cfg.Backup.Email)
		if err != nil {
			log.Fatalf("Failed to open backup repository: %v", err)
		}

		if *backupNow {
			manifest, err := mgr.Snapshot()
			if err != nil {
				log.Fatalf("Backup snapshot failed: %v", err)
			}
			if manifest == nil {
				log.Println("No changes since last snapshot")
			} else {
				log.Printf("Backup snapshot %s committed (%d memories)", manifest.SnapshotID, manifest.MemoryCount)
			}
			return
		}

		restored, err := mgr.Restore()
		if err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		log.Printf("Restored %d memories from %s", restored, cfg.Backup.Path)
		return
	}

	// Build the MCP server with the cognitive engine thresholds from config
	mcpServer := server.NewMCPServer(cfg, store, optionsFromConfig(cfg.Cognitive))

	// Optional semantic search
	if cfg.Embeddings.Enabled {
		if err := setupEmbeddings(cfg, db, store, mcpServer); err != nil {
			log.Printf("Warning: Embeddings disabled: %v", err)
		}
	}

	mcpServer.RegisterTools()

	if *httpMode {
		log.Println("Running in HTTP server mode")
		runHTTPMode(cfg, store, mcpServer)
	} else {
		log.Println("Running in stdio mode (MCP)")
		runStdioMode(mcpServer)
	}
}

// optionsFromConfig maps the configured thresholds onto the engine options
func optionsFromConfig(cfg config.CognitiveConfig) cognitive.Options {
	opts := cognitive.DefaultOptions()
	if cfg.RecentWindowMinutes > 0 {
		opts.RecentWindowMinutes = cfg.RecentWindowMinutes
	}
	if cfg.ContextScanLimit > 0 {
		opts.ContextScanLimit = cfg.ContextScanLimit
	}
	if cfg.FocusRepeatThreshold > 0 {
		opts.FocusRepeatThreshold = cfg.FocusRepeatThreshold
	}
	if cfg.EntityFilterLimit > 0 {
		opts.EntityFilterLimit = cfg.EntityFilterLimit
	}
	if cfg.ActiveEntityLimit > 0 {
		opts.ActiveEntityLimit = cfg.ActiveEntityLimit
	}
	if cfg.CandidateMultiplier > 0 {
		opts.CandidateMultiplier = cfg.CandidateMultiplier
	}
	if cfg.ForgottenDaysThreshold > 0 {
		opts.ForgottenDaysThreshold = cfg.ForgottenDaysThreshold
	}
	return opts
}

// setupEmbeddings wires the embedding client, index and service into the server
func setupEmbeddings(cfg *config.Config, db *gorm.DB, store *database.Store, mcpServer *server.MCPServer) error {
	client, err := embeddings.NewClientFromConfig(cfg.Embeddings)
	if err != nil {
		return err
	}

	index, err := embeddings.NewIndex()
	if err != nil {
		return err
	}

	svc := embeddings.NewService(db, client, index)

	// Warm the index from cached vectors; new memories are indexed on store
	memories, err := store.ListAll(0)
	if err != nil {
		return err
	}
	if err := svc.RebuildIndex(memories); err != nil {
		log.Printf("Warning: failed to rebuild vector index: %v", err)
	}

	mcpServer.SetEmbeddingService(svc)
	log.Printf("Semantic search enabled (provider: %s, model: %s)", cfg.Embeddings.Provider, cfg.Embeddings.Model)
	return nil
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *config.Config) {
	if dbType := getEnv("DB_TYPE", "ENGRAM_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
		log.Printf("Database type from ENV: %s", dbType)
	}

	if dbPath := getEnv("DB_PATH", "ENGRAM_DB_PATH"); dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		log.Printf("Database path from ENV")
	}

	if dbDSN := getEnv("DB_DSN", "ENGRAM_DB_DSN"); dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		log.Printf("Database DSN from ENV (hidden)")
	}

	if portStr := getEnv("PORT", "ENGRAM_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
			log.Printf("Port from ENV: %d", port)
		}
	}

	if backupPath := getEnv("ENGRAM_BACKUP_PATH"); backupPath != "" {
		cfg.Backup.Path = backupPath
		log.Printf("Backup path from ENV")
	}
}

// applyCLIOverrides applies command-line flag overrides to configuration
func applyCLIOverrides(cfg *config.Config, dbType, dbPath, dbDSN string, port int) {
	if dbType != "" {
		cfg.Database.Type = dbType
		log.Printf("Database type from CLI: %s", dbType)
	}

	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		log.Printf("Database path from CLI")
	}

	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		log.Printf("Database DSN from CLI (hidden)")
	}

	if port > 0 {
		cfg.Server.Port = port
		log.Printf("Port from CLI: %d", port)
	}
}

// applyEmbeddingCLIOverrides applies embedding-related CLI flag overrides
func applyEmbeddingCLIOverrides(cfg *config.Config, enableEmbeddings bool, embeddingURL, embeddingModel, embeddingKey string) {
	if enableEmbeddings {
		cfg.Embeddings.Enabled = true
		log.Printf("Embeddings enabled from CLI")
	}

	if embeddingURL != "" {
		cfg.Embeddings.BaseURL = embeddingURL
		log.Printf("Embedding URL from CLI")
	}

	if embeddingModel != "" {
		cfg.Embeddings.Model = embeddingModel
		log.Printf("Embedding model from CLI: %s", embeddingModel)
	}

	if embeddingKey != "" {
		os.Setenv(cfg.Embeddings.APIKeyEnv, embeddingKey)
		log.Printf("Embedding API key from CLI (hidden)")
	}
}

// getEnv tries multiple environment variable names and returns the first non-empty value
func getEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

// runStdioMode serves MCP over stdio
func runStdioMode(mcpServer *server.MCPServer) {
	log.Println("MCP server ready (stdio mode) - 6 tools registered")
	if mcpServer.HasEmbeddings() {
		log.Println("Semantic search enabled")
	}

	if err := mcpserver.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

// runHTTPMode serves MCP over HTTP with the backup scheduler running
func runHTTPMode(cfg *config.Config, store *database.Store, mcpServer *server.MCPServer) {
	httpServer := server.NewHTTPServer(mcpServer)

	mux := http.NewServeMux()
	httpServer.RegisterRoutes(mux)

	if cfg.Backup.Enabled {
		mgr, err := backup.NewManager(store, cfg.Backup.Path, cfg.Backup.Author, cfg.Backup.Email)
		if err != nil {
			log.Printf("Warning: backup disabled: %v", err)
		} else {
			sched := scheduler.NewScheduler(mgr, cfg.Backup.SnapshotInterval)
			sched.Start()
			defer sched.Stop()
			log.Printf("Backup scheduler started (interval: %d minutes)", cfg.Backup.SnapshotInterval)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("HTTP server starting on %s", addr)

	if cfg.Server.TLS.Enabled {
		log.Println("TLS enabled")
		if err := http.ListenAndServeTLS(addr, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, mux); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	} else {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}
}
