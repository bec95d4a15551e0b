package database

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
)

const (
	memTablesTable  = "tables"
	memRecordsTable = "records"
)

// memTable tracks an existing table and its id sequence.
type memTable struct {
	Name string
	Seq  uint64
}

// memRecord is one stored document. Key is "<table>/<zero padded id>" so a
// prefix scan over the id index yields one table in id order.
type memRecord struct {
	Key   string
	Table string
	ID    uint64
	Body  []byte
}

func memSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memTablesTable: {
				Name: memTablesTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			memRecordsTable: {
				Name: memRecordsTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
}

// MemoryBackend keeps the store in a go-memdb database. memdb serializes
// write transactions, which makes id assignment atomic.
type MemoryBackend struct {
	db *memdb.MemDB
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() (*MemoryBackend, error) {
	db, err := memdb.NewMemDB(memSchema())
	if err != nil {
		return nil, errors.Wrap(err, "memory: create database")
	}
	return &MemoryBackend{db: db}, nil
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) CreateTables(_ context.Context, schemas ...TableSchema) error {
	txn := m.db.Txn(true)
	defer txn.Abort()
	for _, schema := range schemas {
		raw, err := txn.First(memTablesTable, "id", schema.Name)
		if err != nil {
			return errors.Wrap(err, "memory: create tables")
		}
		if raw != nil {
			continue
		}
		if err := txn.Insert(memTablesTable, &memTable{Name: schema.Name}); err != nil {
			return errors.Wrap(err, "memory: create tables")
		}
	}
	txn.Commit()
	return nil
}

func (m *MemoryBackend) HasTable(_ context.Context, table string) (bool, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(memTablesTable, "id", table)
	if err != nil {
		return false, errors.Wrap(err, "memory: lookup table")
	}
	return raw != nil, nil
}

func (m *MemoryBackend) Insert(_ context.Context, schema TableSchema, doc Document) (uint64, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	tbl, err := m.table(txn, schema.Name)
	if err != nil {
		return 0, err
	}
	existing, err := m.readAll(txn, schema.Name)
	if err != nil {
		return 0, err
	}
	next := tbl.Seq + 1
	stored, err := PrepareInsert(schema, existing, doc, next)
	if err != nil {
		return 0, err
	}
	if err := m.put(txn, schema.Name, next, stored); err != nil {
		return 0, err
	}
	if err := txn.Insert(memTablesTable, &memTable{Name: tbl.Name, Seq: next}); err != nil {
		return 0, errors.Wrap(err, "memory: advance sequence")
	}
	txn.Commit()
	return next, nil
}

func (m *MemoryBackend) Select(_ context.Context, table string, where Where) ([]Document, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	if _, err := m.table(txn, table); err != nil {
		return nil, err
	}
	all, err := m.readAll(txn, table)
	if err != nil {
		return nil, err
	}
	return FilterDocuments(all, where), nil
}

func (m *MemoryBackend) Update(_ context.Context, schema TableSchema, where Where, patch Patch) (int, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()
	if _, err := m.table(txn, schema.Name); err != nil {
		return 0, err
	}
	all, err := m.readAll(txn, schema.Name)
	if err != nil {
		return 0, err
	}
	changed, err := PlanUpdate(schema, all, where, patch)
	if err != nil {
		return 0, err
	}
	for _, doc := range changed {
		id, _ := DocumentID(doc)
		if err := m.put(txn, schema.Name, id, doc); err != nil {
			return 0, err
		}
	}
	txn.Commit()
	return len(changed), nil
}

func (m *MemoryBackend) Delete(_ context.Context, table string, where Where) (int, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()
	if _, err := m.table(txn, table); err != nil {
		return 0, err
	}
	all, err := m.readAll(txn, table)
	if err != nil {
		return 0, err
	}
	matched := FilterDocuments(all, where)
	for _, doc := range matched {
		id, _ := DocumentID(doc)
		if _, err := txn.DeleteAll(memRecordsTable, "id", recordKey(table, id)); err != nil {
			return 0, errors.Wrap(err, "memory: delete")
		}
	}
	txn.Commit()
	return len(matched), nil
}

func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) table(txn *memdb.Txn, name string) (*memTable, error) {
	raw, err := txn.First(memTablesTable, "id", name)
	if err != nil {
		return nil, errors.Wrap(err, "memory: lookup table")
	}
	if raw == nil {
		return nil, errors.Wrap(ErrNoTable, name)
	}
	return raw.(*memTable), nil
}

func (m *MemoryBackend) readAll(txn *memdb.Txn, table string) ([]Document, error) {
	it, err := txn.Get(memRecordsTable, "id_prefix", table+"/")
	if err != nil {
		return nil, errors.Wrap(err, "memory: scan")
	}
	var docs []Document
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*memRecord)
		doc, err := DecodeDocument(rec.Body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MemoryBackend) put(txn *memdb.Txn, table string, id uint64, doc Document) error {
	raw, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	rec := &memRecord{Key: recordKey(table, id), Table: table, ID: id, Body: raw}
	return errors.Wrap(txn.Insert(memRecordsTable, rec), "memory: insert")
}

func recordKey(table string, id uint64) string {
	return fmt.Sprintf("%s/%020d", table, id)
}
