package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/oyilmaz/warehouse-ledger/internal/export"
	fsstore "github.com/oyilmaz/warehouse-ledger/internal/infra/firestore"
	"github.com/oyilmaz/warehouse-ledger/internal/infra/flatfile"
	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
	"github.com/oyilmaz/warehouse-ledger/internal/logger"
	"github.com/oyilmaz/warehouse-ledger/internal/recorder"
	"github.com/oyilmaz/warehouse-ledger/internal/storage"
)

func main() {
	log := logger.New("warehouse-cli")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-product":
		runAddProduct(log)
	case "record":
		runRecord(log)
	case "delete":
		runDelete(log)
	case "products":
		runProducts(log)
	case "entries":
		runEntries(log)
	case "summary":
		runSummary(log)
	case "export":
		runExport(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Warehouse Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add-product  Create a product (SKU + name)")
	fmt.Println("  record       Record an inbound or outbound ledger entry")
	fmt.Println("  delete       Delete one ledger entry by id")
	fmt.Println("  products     List products")
	fmt.Println("  entries      List ledger entries, newest first")
	fmt.Println("  summary      Aggregate inflow/outflow over a date range")
	fmt.Println("  export       Export the ledger as CSV (local path or gs:// URI)")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// storeFlags are the backend-selection flags shared by every subcommand.
type storeFlags struct {
	backend      *string
	projectID    *string
	credentials  *string
	productsFile *string
	entriesFile  *string
}

func addStoreFlags(fs *flag.FlagSet) *storeFlags {
	return &storeFlags{
		backend:      fs.String("backend", envOr("LEDGER_BACKEND", "file"), "Storage backend: file or firestore"),
		projectID:    fs.String("project", os.Getenv("FIRESTORE_PROJECT_ID"), "GCP project ID for the firestore backend"),
		credentials:  fs.String("credentials", "", "Optional service account key file"),
		productsFile: fs.String("products-file", envOr("PRODUCTS_FILE", "data/products.csv"), "Products ledger file"),
		entriesFile:  fs.String("entries-file", envOr("ENTRIES_FILE", "data/transactions.csv"), "Transactions ledger file"),
	}
}

func (f *storeFlags) open(ctx context.Context, log zerolog.Logger) storage.Store {
	switch *f.backend {
	case "firestore":
		if *f.projectID == "" {
			log.Fatal().Msg("-project (or FIRESTORE_PROJECT_ID) is required for the firestore backend")
		}
		var opts []option.ClientOption
		if *f.credentials != "" {
			opts = append(opts, option.WithCredentialsFile(*f.credentials))
		}
		store, err := fsstore.New(ctx, *f.projectID, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Firestore")
		}
		return store
	case "file":
		return flatfile.New(*f.productsFile, *f.entriesFile)
	default:
		log.Fatal().Str("backend", *f.backend).Msg("Unknown backend, want file or firestore")
		return nil
	}
}

func runAddProduct(log zerolog.Logger) {
	fs := flag.NewFlagSet("add-product", flag.ExitOnError)
	sf := addStoreFlags(fs)
	sku := fs.String("sku", "", "Product SKU (unique)")
	name := fs.String("name", "", "Product display name")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := sf.open(ctx, log)
	defer store.Close()

	rec := recorder.New(store, log, recorder.DefaultTTL)
	if err := rec.AddProduct(ctx, *sku, *name); err != nil {
		log.Fatal().Err(err).Msg("Add product failed")
	}
	fmt.Printf("Added product %s (%s)\n", *sku, *name)
}

func runRecord(log zerolog.Logger) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	sf := addStoreFlags(fs)
	sku := fs.String("sku", "", "Product SKU")
	name := fs.String("name", "", "Product name (denormalized into the entry)")
	quantity := fs.Int64("quantity", 0, "Quantity, must be positive")
	typStr := fs.String("type", "in", "Transaction type: in/giris or out/cikis")
	dateStr := fs.String("date", civil.DateOf(time.Now()).String(), "Entry date, YYYY-MM-DD")
	fs.Parse(os.Args[2:])

	typ, err := ledger.ParseEntryType(*typStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid transaction type")
	}
	date, err := civil.ParseDate(*dateStr)
	if err != nil {
		log.Fatal().Err(err).Str("date", *dateStr).Msg("Invalid date, want YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := sf.open(ctx, log)
	defer store.Close()

	rec := recorder.New(store, log, recorder.DefaultTTL)
	entry, err := rec.RecordEntry(ctx, *sku, *name, *quantity, typ, date)
	if err != nil {
		log.Fatal().Err(err).Msg("Record entry failed")
	}
	fmt.Printf("Recorded entry %s: %s %s x%d on %s\n", entry.ID, entry.SKU, entry.Type, entry.Quantity, entry.Date)
}

func runDelete(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	sf := addStoreFlags(fs)
	id := fs.String("id", "", "Entry id (document id, or row index for the file backend)")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := sf.open(ctx, log)
	defer store.Close()

	rec := recorder.New(store, log, recorder.DefaultTTL)
	if err := rec.DeleteEntry(ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Delete entry failed")
	}
	fmt.Printf("Deleted entry %s\n", *id)
}

func runProducts(log zerolog.Logger) {
	fs := flag.NewFlagSet("products", flag.ExitOnError)
	sf := addStoreFlags(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := sf.open(ctx, log)
	defer store.Close()

	rec := recorder.New(store, log, recorder.DefaultTTL)
	products, err := rec.Products(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("List products failed")
	}

	fmt.Printf("%-20s %s\n", "SKU", "NAME")
	for _, p := range products {
		fmt.Printf("%-20s %s\n", p.SKU, p.Name)
	}
	fmt.Printf("\n%d product(s)\n", len(products))
}

func runEntries(log zerolog.Logger) {
	fs := flag.NewFlagSet("entries", flag.ExitOnError)
	sf := addStoreFlags(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := sf.open(ctx, log)
	defer store.Close()

	rec := recorder.New(store, log, recorder.DefaultTTL)
	entries, err := rec.Entries(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("List entries failed")
	}

	fmt.Printf("%-12s %-12s %-20s %8s  %-6s %s\n", "DATE", "SKU", "NAME", "QTY", "TYPE", "ID")
	for _, e := range entries {
		fmt.Printf("%-12s %-12s %-20s %8d  %-6s %s\n", e.Date, e.SKU, e.ProductName, e.Quantity, e.Type, e.ID)
	}
	fmt.Printf("\n%d entr(ies)\n", len(entries))
}

func runSummary(log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	sf := addStoreFlags(fs)
	startStr := fs.String("start", "", "Range start, YYYY-MM-DD (default: 1 year ago)")
	endStr := fs.String("end", civil.DateOf(time.Now()).String(), "Range end, YYYY-MM-DD")
	sku := fs.String("sku", "", "Optional product filter")
	fs.Parse(os.Args[2:])

	end, err := civil.ParseDate(*endStr)
	if err != nil {
		log.Fatal().Err(err).Str("end", *endStr).Msg("Invalid end date")
	}
	start := end.AddDays(-365)
	if *startStr != "" {
		start, err = civil.ParseDate(*startStr)
		if err != nil {
			log.Fatal().Err(err).Str("start", *startStr).Msg("Invalid start date")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := sf.open(ctx, log)
	defer store.Close()

	rec := recorder.New(store, log, recorder.DefaultTTL)
	summary, err := rec.Summary(ctx, start, end, *sku)
	if err != nil {
		log.Fatal().Err(err).Msg("Summary failed")
	}
	active, err := rec.ActiveSKUs(ctx, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Summary failed")
	}

	fmt.Printf("Range %s .. %s", start, end)
	if *sku != "" {
		fmt.Printf(" (sku %s)", *sku)
	}
	fmt.Println()
	fmt.Printf("  Inflow:  %d\n", summary.TotalIn)
	fmt.Printf("  Outflow: %d\n", summary.TotalOut)
	fmt.Printf("  Net:     %d\n", summary.Net)
	fmt.Printf("  Active products: %v\n", active)
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	sf := addStoreFlags(fs)
	out := fs.String("o", "", "Destination: local path or gs://bucket/object (default: dated object in -gcs-bucket)")
	bucket := fs.String("gcs-bucket", os.Getenv("GCS_BUCKET"), "Bucket for the default destination")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := sf.open(ctx, log)
	defer store.Close()

	rec := recorder.New(store, log, recorder.DefaultTTL)
	entries, err := rec.Entries(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Load entries failed")
	}

	dest := *out
	if dest == "" {
		if *bucket == "" {
			log.Fatal().Msg("Either -o or -gcs-bucket (or GCS_BUCKET) is required")
		}
		dest = fmt.Sprintf("gs://%s/%s", *bucket, export.DefaultObjectName(time.Now()))
	}

	if err := export.Write(ctx, dest, entries); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("Exported %d entr(ies) to %s\n", len(entries), dest)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
