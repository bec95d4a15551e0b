package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type widget struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Size  int    `json:"size"`
}

type widgetPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

var widgetTable = TableSchema{Name: "widget", Unique: []string{"name"}}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func backends(t *testing.T) map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		"bolt": func(t *testing.T) Backend {
			b, err := NewBoltBackend(filepath.Join(t.TempDir(), "fedsdn.db"))
			require.NoError(t, err)
			return b
		},
		"sqlite": func(t *testing.T) Backend {
			b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "fedsdn.sqlite"))
			require.NoError(t, err)
			return b
		},
		"memory": func(t *testing.T) Backend {
			b, err := NewMemoryBackend()
			require.NoError(t, err)
			return b
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store *Store)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(open(t), discardLogger(), widgetTable, TenantTable)
			t.Cleanup(func() { _ = store.Close() })
			require.NoError(t, store.CreateTables(context.Background()))
			fn(t, store)
		})
	}
}

func TestTableInsertAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		widgets := NewTable[widget](store, widgetTable)

		id1, err := widgets.Insert(ctx, widget{ID: 99, Name: "a", Color: "red", Size: 1})
		require.NoError(t, err)
		id2, err := widgets.Insert(ctx, widget{Name: "b", Color: "red", Size: 2})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id1, "caller supplied ids are ignored")
		assert.Equal(t, uint64(2), id2)

		got, err := widgets.Get(ctx, id2)
		require.NoError(t, err)
		assert.Equal(t, widget{ID: 2, Name: "b", Color: "red", Size: 2}, *got)

		_, err = widgets.Get(ctx, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTableUniqueConflict(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		widgets := NewTable[widget](store, widgetTable)

		_, err := widgets.Insert(ctx, widget{Name: "a"})
		require.NoError(t, err)
		_, err = widgets.Insert(ctx, widget{Name: "a"})
		assert.ErrorIs(t, err, ErrConflict)

		id, err := widgets.Insert(ctx, widget{Name: "b"})
		require.NoError(t, err)
		name := "a"
		patch, err := PatchOf(widgetPatch{Name: &name})
		require.NoError(t, err)
		_, err = widgets.UpdateWhere(ctx, ByID(id), patch)
		assert.ErrorIs(t, err, ErrConflict)

		got, err := widgets.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "b", got.Name, "a rejected update leaves the record untouched")

		// Renaming a record to its own name is not a conflict.
		name = "b"
		patch, err = PatchOf(widgetPatch{Name: &name})
		require.NoError(t, err)
		n, err := widgets.UpdateWhere(ctx, ByID(id), patch)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestTableFilterUpdateDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		widgets := NewTable[widget](store, widgetTable)
		for _, w := range []widget{
			{Name: "a", Color: "red", Size: 1},
			{Name: "b", Color: "blue", Size: 1},
			{Name: "c", Color: "red", Size: 2},
		} {
			_, err := widgets.Insert(ctx, w)
			require.NoError(t, err)
		}

		reds, err := widgets.Filter(ctx, Where{"color": "red"})
		require.NoError(t, err)
		require.Len(t, reds, 2)
		assert.Equal(t, "a", reds[0].Name)
		assert.Equal(t, "c", reds[1].Name)

		small, err := widgets.Filter(ctx, Where{"color": "red", "size": 1})
		require.NoError(t, err)
		require.Len(t, small, 1)
		assert.Equal(t, "a", small[0].Name)

		all, err := widgets.Filter(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		green := "green"
		patch, err := PatchOf(widgetPatch{Color: &green})
		require.NoError(t, err)
		n, err := widgets.UpdateWhere(ctx, Where{"color": "red"}, patch)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = widgets.UpdateWhere(ctx, Where{"color": "red"}, patch)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		ok, err := widgets.Any(ctx, Where{"color": "green", "name": "c"})
		require.NoError(t, err)
		assert.True(t, ok)

		n, err = widgets.DeleteWhere(ctx, Where{"color": "green"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := widgets.Filter(ctx, nil)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, "b", left[0].Name)

		// Ids are never reused after a delete.
		id, err := widgets.Insert(ctx, widget{Name: "d"})
		require.NoError(t, err)
		assert.Equal(t, uint64(4), id)
	})
}

func TestTablesAreIsolated(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		_, err := store.Insert(ctx, TenantTable.Name, Document{"name": "x"})
		require.NoError(t, err)

		docs, err := store.Filter(ctx, widgetTable.Name, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestMissingTable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		ok, err := store.TableExists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.Filter(ctx, "nope", nil)
		assert.ErrorIs(t, err, ErrNoTable)
		_, err = store.Insert(ctx, "nope", Document{"name": "x"})
		assert.ErrorIs(t, err, ErrNoTable)
	})
}

func TestConcurrentInsertsGetDistinctIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		widgets := NewTable[widget](store, widgetTable)

		var (
			mu  sync.Mutex
			ids = map[uint64]bool{}
		)
		var g errgroup.Group
		for i := range 20 {
			g.Go(func() error {
				id, err := widgets.Insert(ctx, widget{Name: fmt.Sprintf("w%d", i)})
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if ids[id] {
					return errors.New("duplicate id")
				}
				ids[id] = true
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Len(t, ids, 20)
	})
}

func TestConcurrentInsertsRespectUniqueness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		widgets := NewTable[widget](store, widgetTable)

		var g errgroup.Group
		var mu sync.Mutex
		conflicts := 0
		for range 10 {
			g.Go(func() error {
				_, err := widgets.Insert(ctx, widget{Name: "only"})
				if errors.Is(err, ErrConflict) {
					mu.Lock()
					conflicts++
					mu.Unlock()
					return nil
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, 9, conflicts)
	})
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	store := NewStore(backend, discardLogger(), AllTables()...)

	applied := []int{}
	step := func(code int) Migration {
		return Migration{VersionCode: code, Apply: func(context.Context, *Store) error {
			applied = append(applied, code)
			return nil
		}}
	}

	require.NoError(t, store.Migrate(ctx, "1.0", step(2), step(1)))
	assert.Equal(t, []int{1, 2}, applied)

	for _, schema := range AllTables() {
		ok, err := store.TableExists(ctx, schema.Name)
		require.NoError(t, err)
		assert.True(t, ok, schema.Name)
	}

	require.NoError(t, store.Migrate(ctx, "1.1", step(1), step(2), step(3)))
	assert.Equal(t, []int{1, 2, 3}, applied)

	current, err := store.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, current)

	versions, err := NewTable[SchemaVersion](store, VersioningTable).Filter(ctx, nil)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "1.1", versions[2].Version)

	err = store.Migrate(ctx, "0.9", step(1))
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestWhereMatchesAcrossNumberTypes(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"id": 3, "name": "x"}`))
	require.NoError(t, err)
	assert.True(t, ByID(3).Matches(doc))
	assert.True(t, Where{"id": 3}.Matches(doc))
	assert.False(t, Where{"id": "3"}.Matches(doc))
	assert.False(t, Where{"missing": nil}.Matches(doc))
}

func TestPostgresURL(t *testing.T) {
	url, err := PostgresURL(Options{
		Host:     "db.example.org\n",
		Port:     "5432",
		User:     "fedsdn",
		Password: "secret",
		Database: "fedsdn",
	})
	require.NoError(t, err)
	assert.Contains(t, url, "db.example.org:5432")
	assert.Contains(t, url, "/fedsdn")
	assert.Contains(t, url, "sslmode=disable")
}
