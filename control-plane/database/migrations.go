package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// SchemaVersion is one row of the db_versioning table.
type SchemaVersion struct {
	ID          uint64    `json:"id"`
	Version     string    `json:"version"`
	VersionCode int       `json:"version_code"`
	Timestamp   time.Time `json:"timestamp"`
}

// Migration moves the store from VersionCode-1 to VersionCode.
type Migration struct {
	VersionCode int
	Description string
	Apply       func(ctx context.Context, s *Store) error
}

// ErrSchemaTooNew is returned when the store was written by a newer binary.
var ErrSchemaTooNew = errors.New("database schema is newer than this binary")

// CurrentVersion returns the highest recorded schema version, or 0 for a
// fresh store.
func (s *Store) CurrentVersion(ctx context.Context) (int, error) {
	versions, err := NewTable[SchemaVersion](s, VersioningTable).Filter(ctx, nil)
	if err != nil {
		return 0, err
	}
	current := 0
	for _, v := range versions {
		current = max(current, v.VersionCode)
	}
	return current, nil
}

// Migrate creates missing tables and applies every migration newer than
// the recorded schema version. version labels the binary performing the
// upgrade.
func (s *Store) Migrate(ctx context.Context, version string, migrations ...Migration) error {
	if err := s.CreateTables(ctx); err != nil {
		return err
	}
	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	migrations = slices.Clone(migrations)
	slices.SortFunc(migrations, func(a, b Migration) int { return a.VersionCode - b.VersionCode })
	target := 0
	if len(migrations) > 0 {
		target = migrations[len(migrations)-1].VersionCode
	}
	s.logger.Info("checking schema version", "current", current, "target", target)
	if current > target {
		return fmt.Errorf("%w: store is at %d, binary supports %d", ErrSchemaTooNew, current, target)
	}

	versions := NewTable[SchemaVersion](s, VersioningTable)
	for _, m := range migrations {
		if m.VersionCode <= current {
			continue
		}
		if err := m.Apply(ctx, s); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.VersionCode, err)
		}
		_, err := versions.Insert(ctx, SchemaVersion{
			Version:     version,
			VersionCode: m.VersionCode,
			Timestamp:   time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("record migration %d: %w", m.VersionCode, err)
		}
		s.logger.Info("applied migration", "version_code", m.VersionCode, "description", m.Description)
	}
	return nil
}
