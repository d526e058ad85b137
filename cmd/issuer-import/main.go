// Command issuer-import loads National Tax Agency issuer CSV downloads into
// the local issuer cache used for registration number lookups.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-digitizer/internal/receipt"
	"github.com/zombor/receipt-digitizer/internal/registry"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to load .env file", "error", err)
		os.Exit(1)
	}

	flags := ff.NewFlagSet("issuer-import")
	var (
		dbPath   = flags.StringLong("db", "receipt-digitizer.db", "Database file path")
		encoding = flags.StringLong("encoding", "sjis", "CSV encoding: 'sjis' or 'utf8'")
	)

	// Share the server's environment so both binaries open the same database
	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_DIGITIZER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	files := flags.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintln(os.Stderr, "error: at least one CSV file is required")
		os.Exit(1)
	}

	enc, err := registry.ParseEncoding(*encoding)
	if err != nil {
		slog.Error("Invalid encoding", "error", err)
		os.Exit(1)
	}

	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	importer := registry.NewImporter(db)
	total := 0
	for _, path := range files {
		stats, err := importFile(importer, path, enc)
		if err != nil {
			slog.Error("Import failed", "file", path, "imported", stats.Imported, "error", err)
			db.Close()
			os.Exit(1)
		}
		slog.Info("Imported issuers", "file", path, "imported", stats.Imported, "skipped", stats.Skipped)
		total += stats.Imported
	}
	slog.Info("Import complete", "files", len(files), "issuers", total)
}

func importFile(importer *registry.Importer, path string, enc registry.Encoding) (registry.ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return registry.ImportStats{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return importer.Import(f, enc)
}
