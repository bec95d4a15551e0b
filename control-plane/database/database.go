package database

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// Tables of the federation store.
var (
	SiteTable       = TableSchema{Name: "site", Unique: []string{"name"}}
	TenantTable     = TableSchema{Name: "tenant", Unique: []string{"name"}}
	TenantSiteTable = TableSchema{Name: "tenant_site"}
	FedNetTable     = TableSchema{Name: "fednet", Unique: []string{"name"}}
	NetSegmentTable = TableSchema{Name: "netsegment"}
	VersioningTable = TableSchema{Name: "db_versioning"}
)

// AllTables lists every table of the federation store.
func AllTables() []TableSchema {
	return []TableSchema{
		SiteTable, TenantTable, TenantSiteTable,
		FedNetTable, NetSegmentTable, VersioningTable,
	}
}

// Options selects and configures a backend.
type Options struct {
	// Driver is one of bolt, sqlite, postgres or memory.
	Driver string

	// Path of the bolt or sqlite file.
	Path string

	// Postgres connection.
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// Open creates the backend described by opts and wraps it in a store that
// knows every federation table.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(opts.Driver) {
	case "", "bolt":
		backend, err = NewBoltBackend(opts.Path)
	case "sqlite", "sqlite3":
		backend, err = NewSQLiteBackend(opts.Path)
	case "postgres":
		backend, err = NewPostgresBackend(opts)
	case "memory":
		backend, err = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("entity store opened", "backend", backend.Name())
	return NewStore(backend, logger, AllTables()...), nil
}

// wrapUnlessSentinel adds context to backend failures while keeping the
// store sentinels recognizable with errors.Is.
func wrapUnlessSentinel(err error, msg string) error {
	if stderrors.Is(err, ErrNotFound) || stderrors.Is(err, ErrConflict) || stderrors.Is(err, ErrNoTable) {
		return err
	}
	return errors.Wrap(err, msg)
}
