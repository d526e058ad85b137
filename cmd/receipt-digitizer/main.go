package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-digitizer/internal/receipt"
	"github.com/zombor/receipt-digitizer/internal/registry"
	"github.com/zombor/receipt-digitizer/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type ocrConfig struct {
	engine        string
	geminiKey     string
	geminiModel   string
	ollamaURL     string
	ollamaModel   string
	azureEndpoint string
	azureKey      string
}

// newRecognizer creates the configured OCR engine
func newRecognizer(ctx context.Context, cfg ocrConfig) (scanning.Recognizer, error) {
	switch cfg.engine {
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini recognizer...", "model", cfg.geminiModel)
		return scanning.NewGemini(ctx, apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	case "azure":
		slog.Info("Initializing Azure recognizer...", "endpoint", cfg.azureEndpoint)
		return scanning.NewAzure(cfg.azureEndpoint, cfg.azureKey)
	}
	return nil, fmt.Errorf("invalid OCR engine %q: want gemini, ollama or azure", cfg.engine)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to load .env file", "error", err)
		os.Exit(1)
	}

	flags := ff.NewFlagSet("receipt-digitizer")
	var (
		port          = flags.IntLong("port", 8080, "HTTP server port")
		dbPath        = flags.StringLong("db", "receipt-digitizer.db", "Database file path")
		storagePath   = flags.StringLong("storage", "./receipts", "Storage directory path")
		ocrEngine     = flags.StringLong("ocr", "gemini", "OCR engine: 'gemini', 'ollama' or 'azure'")
		geminiKey     = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = flags.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = flags.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		azureEndpoint = flags.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint")
		azureKey      = flags.StringLong("azure-key", "", "Azure Computer Vision subscription key")
		ntaAppID      = flags.StringLong("nta-app-id", "", "National Tax Agency invoice API application ID (optional)")
		ntaURL        = flags.StringLong("nta-url", registry.DefaultNTABaseURL, "National Tax Agency invoice API base URL")
		authUser      = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		debug         = flags.BoolLong("debug", "Enable debug logging")
		showVersion   = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_DIGITIZER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx := context.Background()

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recognizer, err := newRecognizer(ctx, ocrConfig{
		engine:        *ocrEngine,
		geminiKey:     *geminiKey,
		geminiModel:   *geminiModel,
		ollamaURL:     *ollamaURL,
		ollamaModel:   *ollamaModel,
		azureEndpoint: *azureEndpoint,
		azureKey:      *azureKey,
	})
	if err != nil {
		slog.Error("Failed to initialize OCR engine", "error", err)
		os.Exit(1)
	}
	scanner := scanning.NewOCRScanner(recognizer)
	defer scanner.Close()

	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// The NTA API is only consulted when an application ID is configured
	var fetcher registry.Fetcher
	if *ntaAppID != "" {
		client, err := registry.NewNTAClient(*ntaURL, *ntaAppID)
		if err != nil {
			slog.Error("Failed to initialize NTA client", "error", err)
			os.Exit(1)
		}
		fetcher = client
	} else {
		slog.Info("NTA application ID not set, issuer lookups use local data only")
	}
	resolver := registry.NewResolver(db, db, fetcher)

	receiptService := receipt.NewService(db, scanner, store, resolver)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if basicAuth.Enabled() {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
