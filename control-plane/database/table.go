package database

import (
	"context"
	"fmt"
)

// Table gives typed access to one table of the store. T is a JSON-tagged
// record struct whose id lives in the "id" field.
type Table[T any] struct {
	store  *Store
	schema TableSchema
}

// NewTable binds the records of type T to the given table.
func NewTable[T any](store *Store, schema TableSchema) *Table[T] {
	return &Table[T]{store: store, schema: schema}
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.schema.Name
}

// Exists reports whether the table has been created.
func (t *Table[T]) Exists(ctx context.Context) (bool, error) {
	return t.store.TableExists(ctx, t.schema.Name)
}

// Insert stores rec under a newly assigned id. Any id set on rec is
// ignored.
func (t *Table[T]) Insert(ctx context.Context, rec T) (uint64, error) {
	doc, err := ToDocument(rec)
	if err != nil {
		return 0, err
	}
	delete(doc, IDField)
	return t.store.Insert(ctx, t.schema.Name, doc)
}

// Filter returns the records matching where in id order.
func (t *Table[T]) Filter(ctx context.Context, where Where) ([]T, error) {
	docs, err := t.store.Filter(ctx, t.schema.Name, where)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var rec T
		if err := FromDocument(doc, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// First returns the lowest-id record matching where, or ErrNotFound.
func (t *Table[T]) First(ctx context.Context, where Where) (*T, error) {
	recs, err := t.Filter(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, t.schema.Name, map[string]any(where))
	}
	return &recs[0], nil
}

// Get returns the record with the given id, or ErrNotFound.
func (t *Table[T]) Get(ctx context.Context, id uint64) (*T, error) {
	return t.First(ctx, ByID(id))
}

// Any reports whether at least one record matches where.
func (t *Table[T]) Any(ctx context.Context, where Where) (bool, error) {
	docs, err := t.store.Filter(ctx, t.schema.Name, where)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// UpdateWhere patches every matching record.
func (t *Table[T]) UpdateWhere(ctx context.Context, where Where, patch Patch) (int, error) {
	return t.store.UpdateWhere(ctx, t.schema.Name, where, patch)
}

// DeleteWhere removes every matching record.
func (t *Table[T]) DeleteWhere(ctx context.Context, where Where) (int, error) {
	return t.store.DeleteWhere(ctx, t.schema.Name, where)
}
