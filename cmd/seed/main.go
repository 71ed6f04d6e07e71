// Command seed writes the sample logistics directory to a JSON fixture, to
// Postgres, or to both. The fixture is what DIRECTORY_SEED_FILE expects.
//
// Usage:
//
//	go run ./cmd/seed -out data/directory.json
//	go run ./cmd/seed -database "$DATABASE_URL"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSON directory fixture")
	dsn := flag.String("database", "", "Postgres connection string to upsert the sample entries into")
	at := flag.String("timestamp", "", "RFC 3339 created_at for every entry (default now), for reproducible fixtures")
	flag.Parse()

	if *out == "" && *dsn == "" {
		flag.Usage()
		return fmt.Errorf("at least one of -out or -database is required")
	}

	var clk clockwork.Clock = clockwork.NewRealClock()
	if *at != "" {
		ts, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("invalid -timestamp: %w", err)
		}
		clk = clockwork.NewFakeClockAt(ts)
	}
	entries := store.SampleDirectory(clk.Now().UTC())

	if *out != "" {
		if err := writeFixture(*out, entries); err != nil {
			return fmt.Errorf("writing fixture: %w", err)
		}
		log.Printf("wrote %d entries to %s", len(entries), *out)
	}

	if *dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := seedPostgres(ctx, *dsn, entries); err != nil {
			return fmt.Errorf("seeding postgres: %w", err)
		}
		log.Printf("upserted %d entries into postgres", len(entries))
	}
	return nil
}

func writeFixture(path string, entries []domain.DirectoryEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.WriteFixture(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func seedPostgres(ctx context.Context, dsn string, entries []domain.DirectoryEntry) error {
	pg, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	defer pg.Close()

	for _, e := range entries {
		if err := pg.Insert(ctx, e); err != nil {
			return fmt.Errorf("insert %q: %w", e.Name, err)
		}
	}
	return nil
}
