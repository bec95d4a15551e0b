package database

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// BoltBackend keeps one bucket per table. Keys are big-endian ids so a
// cursor walks records in id order, values are JSON documents.
type BoltBackend struct {
	db *bbolt.DB
}

// NewBoltBackend opens (or creates) the bbolt file at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt: open %s", path)
	}
	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Name() string { return "bolt" }

func (b *BoltBackend) CreateTables(_ context.Context, schemas ...TableSchema) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		for _, schema := range schemas {
			if _, err := tx.CreateBucketIfNotExists([]byte(schema.Name)); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "bolt: create tables")
}

func (b *BoltBackend) HasTable(_ context.Context, table string) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket([]byte(table)) != nil
		return nil
	})
	return exists, errors.Wrap(err, "bolt: lookup table")
}

func (b *BoltBackend) Insert(_ context.Context, schema TableSchema, doc Document) (uint64, error) {
	var id uint64
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(schema.Name))
		if bucket == nil {
			return errors.Wrap(ErrNoTable, schema.Name)
		}
		existing, err := readAll(bucket)
		if err != nil {
			return err
		}
		// NextSequence is atomic under the single bolt writer, so two
		// inserts can never observe the same id.
		next, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		stored, err := PrepareInsert(schema, existing, doc, next)
		if err != nil {
			return err
		}
		raw, err := EncodeDocument(stored)
		if err != nil {
			return err
		}
		if err := bucket.Put(itob(next), raw); err != nil {
			return err
		}
		id = next
		return nil
	})
	if err != nil {
		return 0, wrapUnlessSentinel(err, "bolt: insert into "+schema.Name)
	}
	return id, nil
}

func (b *BoltBackend) Select(_ context.Context, table string, where Where) ([]Document, error) {
	var docs []Document
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return errors.Wrap(ErrNoTable, table)
		}
		all, err := readAll(bucket)
		if err != nil {
			return err
		}
		docs = FilterDocuments(all, where)
		return nil
	})
	if err != nil {
		return nil, wrapUnlessSentinel(err, "bolt: select from "+table)
	}
	return docs, nil
}

func (b *BoltBackend) Update(_ context.Context, schema TableSchema, where Where, patch Patch) (int, error) {
	var n int
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(schema.Name))
		if bucket == nil {
			return errors.Wrap(ErrNoTable, schema.Name)
		}
		all, err := readAll(bucket)
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
			if err := bucket.Put(itob(id), raw); err != nil {
				return err
			}
		}
		n = len(changed)
		return nil
	})
	if err != nil {
		return 0, wrapUnlessSentinel(err, "bolt: update "+schema.Name)
	}
	return n, nil
}

func (b *BoltBackend) Delete(_ context.Context, table string, where Where) (int, error) {
	var n int
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return errors.Wrap(ErrNoTable, table)
		}
		all, err := readAll(bucket)
		if err != nil {
			return err
		}
		var keysToDelete [][]byte
		for _, doc := range FilterDocuments(all, where) {
			id, _ := DocumentID(doc)
			keysToDelete = append(keysToDelete, itob(id))
		}
		for _, key := range keysToDelete {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		n = len(keysToDelete)
		return nil
	})
	if err != nil {
		return 0, wrapUnlessSentinel(err, "bolt: delete from "+table)
	}
	return n, nil
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}

func readAll(bucket *bbolt.Bucket) ([]Document, error) {
	var docs []Document
	cursor := bucket.Cursor()
	for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
		doc, err := DecodeDocument(v)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", binary.BigEndian.Uint64(k))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}
