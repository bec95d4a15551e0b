package database

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-gorp/gorp"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sapcc/go-bits/easypg"
)

// sqlRecord is one stored document.
type sqlRecord struct {
	Table string `db:"tbl"`
	ID    int64  `db:"id"`
	Body  string `db:"body"`
}

// sqlTable tracks an existing table and its id sequence.
type sqlTable struct {
	Name string `db:"name"`
	Seq  int64  `db:"seq"`
}

const (
	sqlRecordsTable = "fedsdn_records"
	sqlTablesTable  = "fedsdn_tables"
)

// SQLBackend stores documents in a relational database through gorp. All
// logical tables share one records table keyed by (tbl, id); sequences live
// in a second table and are advanced with UPDATE before they are read, so
// concurrent inserts serialize on the sequence row.
type SQLBackend struct {
	dbMap  *gorp.DbMap
	driver string
	// Serializes writers of this process. sqlite would otherwise answer
	// concurrent write transactions with SQLITE_BUSY.
	mu sync.Mutex
}

// NewSQLiteBackend opens the sqlite file at path.
func NewSQLiteBackend(path string) (*SQLBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite: open %s", path)
	}
	db.SetMaxOpenConns(1)
	return newSQLBackend(db, gorp.SqliteDialect{}, "sqlite")
}

// PostgresURL builds the connection URL of opts.
func PostgresURL(opts Options) (string, error) {
	oneLine := func(s string) string { return strings.ReplaceAll(s, "\n", "") }
	dbURL, err := easypg.URLFrom(easypg.URLParts{
		HostName:          oneLine(opts.Host),
		Port:              oneLine(opts.Port),
		UserName:          oneLine(opts.User),
		Password:          oneLine(opts.Password),
		ConnectionOptions: "sslmode=disable",
		DatabaseName:      oneLine(opts.Database),
	})
	if err != nil {
		return "", errors.Wrap(err, "postgres: build url")
	}
	return dbURL.String(), nil
}

// NewPostgresBackend connects to postgres and waits until it answers.
func NewPostgresBackend(opts Options) (*SQLBackend, error) {
	dbURL, err := PostgresURL(opts)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: open")
	}
	maxRetries := 10
	for i := range maxRetries {
		err = db.Ping()
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			return nil, errors.Wrap(err, "postgres: giving up connecting to database")
		}
		slog.Error("failed to connect to database, retrying...", "error", err)
		time.Sleep(1 * time.Second)
	}
	db.SetMaxOpenConns(16)
	return newSQLBackend(db, gorp.PostgresDialect{}, "postgres")
}

func newSQLBackend(db *sql.DB, dialect gorp.Dialect, driver string) (*SQLBackend, error) {
	dbMap := &gorp.DbMap{Db: db, Dialect: dialect}
	records := dbMap.AddTableWithName(sqlRecord{}, sqlRecordsTable).SetKeys(false, "Table", "ID")
	records.ColMap("Table").SetMaxSize(255)
	records.ColMap("Body").SetMaxSize(1 << 20)
	dbMap.AddTableWithName(sqlTable{}, sqlTablesTable).SetKeys(false, "Name").ColMap("Name").SetMaxSize(255)
	if err := dbMap.CreateTablesIfNotExists(); err != nil {
		return nil, errors.Wrapf(err, "%s: create tables", driver)
	}
	return &SQLBackend{dbMap: dbMap, driver: driver}, nil
}

func (s *SQLBackend) Name() string { return s.driver }

func (s *SQLBackend) CreateTables(_ context.Context, schemas ...TableSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(func(tx *gorp.Transaction) error {
		for _, schema := range schemas {
			n, err := tx.SelectInt("SELECT COUNT(*) FROM "+sqlTablesTable+" WHERE name = :name",
				map[string]any{"name": schema.Name})
			if err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			if err := tx.Insert(&sqlTable{Name: schema.Name}); err != nil {
				return err
			}
		}
		return nil
	}, "create tables")
}

func (s *SQLBackend) HasTable(_ context.Context, table string) (bool, error) {
	n, err := s.dbMap.SelectInt("SELECT COUNT(*) FROM "+sqlTablesTable+" WHERE name = :name",
		map[string]any{"name": table})
	if err != nil {
		return false, errors.Wrapf(err, "%s: lookup table", s.driver)
	}
	return n > 0, nil
}

func (s *SQLBackend) Insert(_ context.Context, schema TableSchema, doc Document) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id uint64
	err := s.inTx(func(tx *gorp.Transaction) error {
		res, err := tx.Exec("UPDATE "+sqlTablesTable+" SET seq = seq + 1 WHERE name = :name",
			map[string]any{"name": schema.Name})
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrap(ErrNoTable, schema.Name)
		}
		seq, err := tx.SelectInt("SELECT seq FROM "+sqlTablesTable+" WHERE name = :name",
			map[string]any{"name": schema.Name})
		if err != nil {
			return err
		}
		existing, _, err := s.readAll(tx, schema.Name)
		if err != nil {
			return err
		}
		stored, err := PrepareInsert(schema, existing, doc, uint64(seq))
		if err != nil {
			return err
		}
		raw, err := EncodeDocument(stored)
		if err != nil {
			return err
		}
		if err := tx.Insert(&sqlRecord{Table: schema.Name, ID: seq, Body: string(raw)}); err != nil {
			return err
		}
		id = uint64(seq)
		return nil
	}, "insert into "+schema.Name)
	return id, err
}

func (s *SQLBackend) Select(ctx context.Context, table string, where Where) ([]Document, error) {
	exists, err := s.HasTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrap(ErrNoTable, table)
	}
	all, _, err := s.readAll(s.dbMap, table)
	if err != nil {
		return nil, wrapUnlessSentinel(err, s.driver+": select from "+table)
	}
	return FilterDocuments(all, where), nil
}

func (s *SQLBackend) Update(_ context.Context, schema TableSchema, where Where, patch Patch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.inTx(func(tx *gorp.Transaction) error {
		all, _, err := s.readAll(tx, schema.Name)
		if err != nil {
			return err
		}
		changed, err := PlanUpdate(schema, all, where, patch)
		if err != nil {
			return err
		}
		for _, doc := range changed {
			id, _ := DocumentID(doc)
			raw, err := EncodeDocument(doc)
			if err != nil {
				return err
			}
			if _, err := tx.Update(&sqlRecord{Table: schema.Name, ID: int64(id), Body: string(raw)}); err != nil {
				return err
			}
		}
		n = len(changed)
		return nil
	}, "update "+schema.Name)
	return n, err
}

func (s *SQLBackend) Delete(_ context.Context, table string, where Where) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.inTx(func(tx *gorp.Transaction) error {
		all, rows, err := s.readAll(tx, table)
		if err != nil {
			return err
		}
		for i, doc := range all {
			if !where.Matches(doc) {
				continue
			}
			if _, err := tx.Delete(&rows[i]); err != nil {
				return err
			}
			n++
		}
		return nil
	}, "delete from "+table)
	return n, err
}

func (s *SQLBackend) Close() error {
	return s.dbMap.Db.Close()
}

func (s *SQLBackend) inTx(fn func(tx *gorp.Transaction) error, op string) error {
	tx, err := s.dbMap.Begin()
	if err != nil {
		return errors.Wrapf(err, "%s: begin transaction", s.driver)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to roll back transaction", "error", rbErr)
		}
		return wrapUnlessSentinel(err, s.driver+": "+op)
	}
	return errors.Wrapf(tx.Commit(), "%s: commit", s.driver)
}

func (s *SQLBackend) readAll(exec gorp.SqlExecutor, table string) ([]Document, []sqlRecord, error) {
	var rows []sqlRecord
	_, err := exec.Select(&rows, "SELECT * FROM "+sqlRecordsTable+" WHERE tbl = :tbl ORDER BY id",
		map[string]any{"tbl": table})
	if err != nil {
		return nil, nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := DecodeDocument([]byte(row.Body))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "record %s/%d", table, row.ID)
		}
		docs = append(docs, doc)
	}
	return docs, rows, nil
}
