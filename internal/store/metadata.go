package store

import (
	"database/sql"
	"log/slog"
)

// MetaCatalogChecksum records the checksum of the instrument catalog the
// database was last served with.
const MetaCatalogChecksum = "catalog_checksum"

// SetMetadata upserts a key-value pair in the kage_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kage_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kage_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// RecordCatalogChecksum stores the running catalog checksum and reports
// whether it differs from the one recorded before. A fresh database is not
// considered changed.
func (s *Store) RecordCatalogChecksum(checksum string) (changed bool, err error) {
	prev, err := s.GetMetadata(MetaCatalogChecksum)
	if err != nil {
		return false, err
	}
	if prev == checksum {
		return false, nil
	}
	if err := s.SetMetadata(MetaCatalogChecksum, checksum); err != nil {
		return false, err
	}
	if prev != "" {
		slog.Warn("instrument catalog changed since last run", "previous", prev, "current", checksum)
		return true, nil
	}
	return false, nil
}
