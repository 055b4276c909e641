package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"github.com/oyilmaz/warehouse-ledger/internal/api/handlers"
	"github.com/oyilmaz/warehouse-ledger/internal/api/middleware"
	fsstore "github.com/oyilmaz/warehouse-ledger/internal/infra/firestore"
	"github.com/oyilmaz/warehouse-ledger/internal/infra/flatfile"
	"github.com/oyilmaz/warehouse-ledger/internal/logger"
	"github.com/oyilmaz/warehouse-ledger/internal/recorder"
	"github.com/oyilmaz/warehouse-ledger/internal/storage"
	"github.com/rs/zerolog"
)

func main() {
	// Parse command-line flags
	var (
		port         = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		backend      = flag.String("backend", envOr("LEDGER_BACKEND", "file"), "Storage backend: file or firestore")
		projectID    = flag.String("project", os.Getenv("FIRESTORE_PROJECT_ID"), "GCP project ID for the firestore backend (or set FIRESTORE_PROJECT_ID)")
		credentials  = flag.String("credentials", "", "Optional service account key file for the firestore backend")
		productsFile = flag.String("products-file", envOr("PRODUCTS_FILE", "data/products.csv"), "Products ledger file for the file backend")
		entriesFile  = flag.String("entries-file", envOr("ENTRIES_FILE", "data/transactions.csv"), "Transactions ledger file for the file backend")
		snapshotTTL  = flag.Duration("snapshot-ttl", recorder.DefaultTTL, "How long loaded ledger snapshots stay valid for reads")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New("warehouse-api")

	ctx := context.Background()

	store := openStore(ctx, log, *backend, *projectID, *credentials, *productsFile, *entriesFile)
	defer store.Close()

	rec := recorder.New(store, log, *snapshotTTL)

	// Initialize handlers
	productsHandler := handlers.NewProductsHandler(rec, log)
	entriesHandler := handlers.NewEntriesHandler(rec, log)

	// Create router
	mux := http.NewServeMux()

	// Products endpoints
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			productsHandler.ListProducts(w, r)
		case http.MethodPost:
			productsHandler.AddProduct(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Entries endpoints
	mux.HandleFunc("/api/entries", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			entriesHandler.ListEntries(w, r)
		case http.MethodPost:
			entriesHandler.RecordEntry(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/entries/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			// Extract entry ID from path
			id := strings.TrimPrefix(r.URL.Path, "/api/entries/")
			if id == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Entry ID is required")
				return
			}
			entriesHandler.DeleteEntry(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Summary and export endpoints
	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			entriesHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			entriesHandler.Export(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"backend": *backend,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("backend", *backend).Msg("Starting ledger API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openStore builds the selected storage backend. A firestore connection
// failure is fatal here: the document backend cannot degrade.
func openStore(ctx context.Context, log zerolog.Logger, backend, projectID, credentials, productsFile, entriesFile string) storage.Store {
	switch backend {
	case "firestore":
		if projectID == "" {
			log.Fatal().Msg("-project (or FIRESTORE_PROJECT_ID) is required for the firestore backend")
		}
		var opts []option.ClientOption
		if credentials != "" {
			opts = append(opts, option.WithCredentialsFile(credentials))
		}
		store, err := fsstore.New(ctx, projectID, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Firestore")
		}
		return store
	case "file":
		return flatfile.New(productsFile, entriesFile)
	default:
		log.Fatal().Str("backend", backend).Msg("Unknown backend, want file or firestore")
		return nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
