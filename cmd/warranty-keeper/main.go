package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/mkalnins/warranty-keeper/internal/document"
	"github.com/mkalnins/warranty-keeper/internal/notify"
	"github.com/mkalnins/warranty-keeper/internal/recognize"
	"github.com/mkalnins/warranty-keeper/internal/sync"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("warranty-keeper")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "warranty-keeper.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./photos", "Photo storage directory path")
		account        = fs.StringLong("account", "local", "Account email owning the documents")
		recognizerType = fs.StringLong("recognizer", "gemini", "Text recognizer: 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		driveCreds     = fs.StringLong("drive-credentials", "", "Google Drive credentials file (empty disables cloud sync)")
		syncInterval   = fs.DurationLong("sync-interval", 15*time.Minute, "Interval between cloud sync cycles")
		notifyInterval = fs.DurationLong("notify-interval", time.Hour, "Interval between warranty expiry checks")
		restoreOnStart = fs.BoolLong("restore", "Restore missing documents from the cloud manifest on startup")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("WARRANTY_KEEPER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	slog.Info("Initializing database...")
	db, err := document.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize text recognizer based on type
	var recognizer recognize.Recognizer
	switch *recognizerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		recognizer, err = recognize.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		recognizer, err = recognize.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid recognizer type", "type", *recognizerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer recognizer.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := document.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize cloud sync when credentials are configured
	var drv *sync.Drive
	if *driveCreds != "" {
		slog.Info("Initializing Google Drive sync...", "account", *account)
		drv, err = sync.NewDrive(ctx, *driveCreds)
		if err != nil {
			slog.Error("Failed to initialize Google Drive", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Cloud sync disabled, documents stay local only")
	}

	// Initialize service
	var cloud document.CloudMirror
	if drv != nil {
		cloud = drv
	}
	documentService := document.NewService(db, store, recognizer, cloud)

	var syncer *sync.Syncer
	if drv != nil {
		syncer = sync.NewSyncer(drv, documentService, *account)
		if *restoreOnStart {
			if err := syncer.Restore(ctx); err != nil {
				slog.Error("Startup restore failed", "error", err)
			}
		}
		go syncer.Run(ctx, *syncInterval)
	}

	// Warranty expiry notifications
	notifier := notify.NewNotifier(documentService, notify.LogDispatcher{}, *account)
	go notifier.Run(ctx, *notifyInterval)

	// Initialize server
	basicAuth := document.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	var syncRunner document.SyncRunner
	if syncer != nil {
		syncRunner = syncer
	}
	server := document.NewServer(documentService, syncRunner, *account, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "account", *account)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	<-ctx.Done()
	slog.Info("Shutting down...")
}
