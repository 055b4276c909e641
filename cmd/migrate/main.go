// Command migrate copies both ledgers between the two storage backends,
// for consolidating flat-file deployments onto Firestore or pulling a
// Firestore deployment down into files. Products already present at the
// destination are skipped; entries are always appended, so check first
// with -dry-run when the destination is not empty.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/option"

	fsstore "github.com/oyilmaz/warehouse-ledger/internal/infra/firestore"
	"github.com/oyilmaz/warehouse-ledger/internal/infra/flatfile"
	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
	"github.com/oyilmaz/warehouse-ledger/internal/logger"
	"github.com/oyilmaz/warehouse-ledger/internal/storage"
)

var (
	direction    = flag.String("direction", "file-to-firestore", "file-to-firestore or firestore-to-file")
	projectID    = flag.String("project", os.Getenv("FIRESTORE_PROJECT_ID"), "GCP project ID (required)")
	credentials  = flag.String("credentials", "", "Optional service account key file")
	productsFile = flag.String("products-file", envOr("PRODUCTS_FILE", "data/products.csv"), "Products ledger file")
	entriesFile  = flag.String("entries-file", envOr("ENTRIES_FILE", "data/transactions.csv"), "Transactions ledger file")
	dryRun       = flag.Bool("dry-run", false, "Report what would be migrated without writing")
)

func main() {
	flag.Parse()
	log := logger.New("warehouse-migrate")

	if *projectID == "" {
		log.Fatal().Msg("-project (or FIRESTORE_PROJECT_ID) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var opts []option.ClientOption
	if *credentials != "" {
		opts = append(opts, option.WithCredentialsFile(*credentials))
	}
	docStore, err := fsstore.New(ctx, *projectID, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	defer docStore.Close()

	fileStore := flatfile.New(*productsFile, *entriesFile)

	var src, dst storage.Store
	switch *direction {
	case "file-to-firestore":
		src, dst = fileStore, docStore
	case "firestore-to-file":
		src, dst = docStore, fileStore
	default:
		log.Fatal().Str("direction", *direction).Msg("Unknown direction")
	}

	products, err := src.LoadProducts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load source products")
	}
	entries, err := src.LoadEntries(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load source entries")
	}
	log.Info().Int("products", len(products)).Int("entries", len(entries)).Str("direction", *direction).Msg("Source ledgers loaded")

	existing, err := dst.LoadProducts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load destination products")
	}
	existingSKUs := make(map[string]bool, len(existing))
	for _, p := range existing {
		existingSKUs[p.SKU] = true
	}

	destEntries, err := dst.LoadEntries(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load destination entries")
	}
	if len(destEntries) > 0 {
		log.Warn().Int("count", len(destEntries)).Msg("Destination entry ledger is not empty; migrated entries will be appended")
	}

	if *dryRun {
		skipped := 0
		for _, p := range products {
			if existingSKUs[p.SKU] {
				skipped++
			}
		}
		fmt.Printf("Would migrate %d product(s) (%d already present) and %d entr(ies)\n",
			len(products)-skipped, skipped, len(entries))
		return
	}

	migratedProducts := 0
	for _, p := range products {
		if existingSKUs[p.SKU] {
			log.Debug().Str("sku", p.SKU).Msg("Product already at destination, skipping")
			continue
		}
		if err := dst.SaveProduct(ctx, p); err != nil {
			log.Fatal().Err(err).Str("sku", p.SKU).Msg("Failed to migrate product")
		}
		migratedProducts++
	}

	// Oldest first, so row order at the destination matches history.
	ordered := make([]ledger.Entry, len(entries))
	copy(ordered, entries)
	ledger.SortByDateDesc(ordered)
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}

	for _, e := range ordered {
		if _, err := dst.AppendEntry(ctx, e); err != nil {
			log.Fatal().Err(err).Str("id", e.ID).Msg("Failed to migrate entry")
		}
	}

	fmt.Printf("Migrated %d product(s) and %d entr(ies) (%s)\n", migratedProducts, len(ordered), *direction)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
