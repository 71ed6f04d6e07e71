package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// ReadFixture decodes a JSON array of directory entries.
func ReadFixture(r io.Reader) ([]domain.DirectoryEntry, error) {
	var entries []domain.DirectoryEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode directory fixture: %w", err)
	}
	return entries, nil
}

// LoadFixture reads a fixture file written by WriteFixture.
func LoadFixture(path string) ([]domain.DirectoryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open directory fixture: %w", err)
	}
	defer f.Close()
	return ReadFixture(f)
}

// WriteFixture encodes entries as an indented JSON array.
func WriteFixture(w io.Writer, entries []domain.DirectoryEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode directory fixture: %w", err)
	}
	return nil
}
