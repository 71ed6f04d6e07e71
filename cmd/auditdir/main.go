// Command auditdir checks a logistics directory for data problems that the
// map would otherwise skip silently: half-set coordinate pairs, values out of
// range or outside the service region, unknown statuses or categories, and
// duplicates. It reads a JSON fixture or a Postgres database.
//
// Usage:
//
//	go run ./cmd/auditdir -fixture data/directory.json
//	go run ./cmd/auditdir -database "$DATABASE_URL" -region "6,68,37,97"
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/store"
)

// phase tracks pass/fail for an audit phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "", "path to a JSON directory fixture")
	dsn := flag.String("database", "", "Postgres connection string")
	regionFlag := flag.String("region", domain.IndiaBounds.String(), "service region as minLat,minLon,maxLat,maxLon")
	flag.Parse()

	if (*fixture == "") == (*dsn == "") {
		flag.Usage()
		os.Exit(2)
	}

	region, err := domain.ParseBBox(*regionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid -region: %v\n", err)
		os.Exit(2)
	}

	entries, err := load(*fixture, *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, entries, region))
}

func load(fixture, dsn string) ([]domain.DirectoryEntry, error) {
	if fixture != "" {
		return store.LoadFixture(fixture)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer pg.Close()
	return pg.List(ctx)
}

func run(w io.Writer, entries []domain.DirectoryEntry, region domain.BBox) int {
	fmt.Fprintln(w, "=== Logistics Directory Audit ===")
	fmt.Fprintln(w)

	phases := []*phase{
		auditRequiredFields(entries),
		auditCoordinatePairs(entries),
		auditRanges(entries, region),
		auditEnums(entries),
		auditDuplicates(entries),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	located := 0
	for _, e := range entries {
		if _, ok := e.Coordinate(); ok {
			located++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Entries: %d total, %d with coordinates, %d awaiting backfill\n",
		len(entries), located, countNeedsGeocoding(entries))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll checks passed.")
		return 0
	}
	fmt.Fprintln(w, "\nAudit FAILED.")
	return 1
}

func label(e domain.DirectoryEntry) string {
	return fmt.Sprintf("%s (%s)", e.Name, e.ID)
}

func auditRequiredFields(entries []domain.DirectoryEntry) *phase {
	p := &phase{name: "Phase 1: Required fields"}
	for _, e := range entries {
		if e.ID == "" {
			p.errorf("%q: id is empty", e.Name)
		}
		if e.Name == "" {
			p.errorf("%s: name is empty", e.ID)
		}
		if e.Address == "" {
			p.errorf("%s: address is empty (expected %q when unknown)", label(e), domain.AddressNotProvided)
		}
	}
	return p
}

func auditCoordinatePairs(entries []domain.DirectoryEntry) *phase {
	p := &phase{name: "Phase 2: Coordinate pairs"}
	for _, e := range entries {
		if e.HasPartialCoordinate() {
			p.errorf("%s: only one of latitude/longitude is set", label(e))
		}
	}
	return p
}

func auditRanges(entries []domain.DirectoryEntry, region domain.BBox) *phase {
	p := &phase{name: "Phase 3: Ranges and region"}
	for _, e := range entries {
		if e.Latitude == nil || e.Longitude == nil {
			continue
		}
		c := domain.Coordinate{Lat: *e.Latitude, Lon: *e.Longitude}
		if err := domain.Validate(c, &region); err != nil {
			p.errorf("%s: %v", label(e), err)
		}
	}
	return p
}

func auditEnums(entries []domain.DirectoryEntry) *phase {
	p := &phase{name: "Phase 4: Status and category"}
	for _, e := range entries {
		if !e.Status.Valid() {
			p.errorf("%s: unknown status %q", label(e), e.Status)
		}
		if !domain.KnownCategory(e.Category) {
			p.errorf("%s: unknown category %q", label(e), e.Category)
		}
	}
	return p
}

func auditDuplicates(entries []domain.DirectoryEntry) *phase {
	p := &phase{name: "Phase 5: Duplicates"}
	ids := make(map[string]int, len(entries))
	names := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.ID != "" {
			ids[e.ID]++
			if ids[e.ID] == 2 {
				p.errorf("id %s is used more than once", e.ID)
			}
		}
		key := domain.NormalizeAddress(e.Name)
		if prev, ok := names[key]; ok {
			p.errorf("%s: same name as %s", label(e), prev)
			continue
		}
		names[key] = e.ID
	}
	return p
}

func countNeedsGeocoding(entries []domain.DirectoryEntry) int {
	n := 0
	for _, e := range entries {
		if domain.NeedsGeocoding(e) {
			n++
		}
	}
	return n
}
