package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a unique field.
	ErrConflict = errors.New("unique constraint violated")
	// ErrNoTable is returned when an operation targets a table that was
	// never created.
	ErrNoTable = errors.New("table does not exist")
)

// TableSchema describes one table of the entity store. Unique lists the
// fields whose values must not repeat across the records of the table.
type TableSchema struct {
	Name   string
	Unique []string
}

// Backend is the storage engine behind the entity store. Records travel as
// documents; filtering and patching are equality based and done by the
// shared helpers in document.go, so a backend only has to provide atomic
// id assignment and a consistent view inside each call.
type Backend interface {
	Name() string
	CreateTables(ctx context.Context, schemas ...TableSchema) error
	HasTable(ctx context.Context, table string) (bool, error)

	// Insert assigns the next id of the table and stores doc under it. Id
	// assignment and the unique check happen in the same write transaction.
	Insert(ctx context.Context, schema TableSchema, doc Document) (uint64, error)
	Select(ctx context.Context, table string, where Where) ([]Document, error)
	Update(ctx context.Context, schema TableSchema, where Where, patch Patch) (int, error)
	Delete(ctx context.Context, table string, where Where) (int, error)

	Close() error
}

// Store is the entity store used by every resource registry. It wraps a
// backend with schema bookkeeping, logging and metrics.
type Store struct {
	backend Backend
	schemas map[string]TableSchema
	monitor *monitor
	logger  *slog.Logger
}

// NewStore creates a store on top of backend knowing the given tables.
func NewStore(backend Backend, logger *slog.Logger, schemas ...TableSchema) *Store {
	s := &Store{
		backend: backend,
		schemas: make(map[string]TableSchema, len(schemas)),
		monitor: newMonitor(),
		logger:  logger,
	}
	for _, schema := range schemas {
		s.schemas[schema.Name] = schema
	}
	return s
}

// Backend returns the underlying storage engine.
func (s *Store) Backend() Backend {
	return s.backend
}

// Schemas returns the registered tables in registration-independent order.
func (s *Store) Schemas() []TableSchema {
	out := make([]TableSchema, 0, len(s.schemas))
	for _, name := range sortedKeys(s.schemas) {
		out = append(out, s.schemas[name])
	}
	return out
}

func (s *Store) schema(table string) TableSchema {
	if schema, ok := s.schemas[table]; ok {
		return schema
	}
	return TableSchema{Name: table}
}

// TableExists reports whether the table has been created.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.observe(table, "exists", func() error {
		var err error
		exists, err = s.backend.HasTable(ctx, table)
		return err
	})
	return exists, err
}

// CreateTables creates every registered table that is missing.
func (s *Store) CreateTables(ctx context.Context) error {
	return s.observe("*", "create", func() error {
		return s.backend.CreateTables(ctx, s.Schemas()...)
	})
}

// Insert stores doc and returns its new id.
func (s *Store) Insert(ctx context.Context, table string, doc Document) (uint64, error) {
	var id uint64
	err := s.observe(table, "insert", func() error {
		var err error
		id, err = s.backend.Insert(ctx, s.schema(table), doc)
		return err
	})
	return id, err
}

// Filter returns every document of table matching where, ordered by id.
func (s *Store) Filter(ctx context.Context, table string, where Where) ([]Document, error) {
	var docs []Document
	err := s.observe(table, "select", func() error {
		var err error
		docs, err = s.backend.Select(ctx, table, where)
		return err
	})
	return docs, err
}

// UpdateWhere applies patch to every matching document and returns how
// many were changed.
func (s *Store) UpdateWhere(ctx context.Context, table string, where Where, patch Patch) (int, error) {
	var n int
	err := s.observe(table, "update", func() error {
		var err error
		n, err = s.backend.Update(ctx, s.schema(table), where, patch)
		return err
	})
	return n, err
}

// DeleteWhere removes every matching document and returns how many were
// removed.
func (s *Store) DeleteWhere(ctx context.Context, table string, where Where) (int, error) {
	var n int
	err := s.observe(table, "delete", func() error {
		var err error
		n, err = s.backend.Delete(ctx, table, where)
		return err
	})
	return n, err
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) observe(table, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.monitor.observe(s.backend.Name(), table, op, time.Since(start), err)
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
		s.logger.Error("store operation failed",
			"backend", s.backend.Name(),
			"table", table,
			"operation", op,
			"error", err)
	}
	return err
}

// Describe implements prometheus.Collector.
func (s *Store) Describe(ch chan<- *prometheus.Desc) {
	s.monitor.Describe(ch)
}

// Collect implements prometheus.Collector.
func (s *Store) Collect(ch chan<- prometheus.Metric) {
	s.monitor.Collect(ch)
}

func conflictError(table, field string, value any) error {
	return fmt.Errorf("%w: %s.%s %v already exists", ErrConflict, table, field, value)
}
