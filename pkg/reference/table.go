package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/illmade-knight/go-telex/pkg/cache"
)

// ErrNotFound is returned by every Lookup for an unknown code.
var ErrNotFound = cache.ErrNotFound

// Source answers code lookups for one table. Local tables and remote
// (Redis and Firestore) tables both satisfy it.
type Source[V any] interface {
	Lookup(ctx context.Context, code string) (V, error)
}

// Dataset is the set of tables the enrichment engine reads. It is built once at
// startup and passed to the components that need it.
type Dataset struct {
	Airlines  Source[Airline]
	Airports  Source[Airport]
	Aircraft  Source[Aircraft]
	Countries Source[Country]
}

// Table is a read-only, in-process table keyed by exact code.
type Table[V any] struct {
	name  string
	store *cache.InMemoryCache[string, V]
}

// NewTable indexes rows by key. Rows with an empty or null code are skipped.
// For duplicate codes the first row is kept unless replace says otherwise.
func NewTable[V any](name string, rows []V, key func(V) string, replace func(existing, candidate V) bool) *Table[V] {
	ctx := context.Background()
	store := cache.NewInMemoryCache[string, V](nil)
	for _, row := range rows {
		code := normalizeCode(key(row))
		if code == "" {
			continue
		}
		if existing, err := store.Fetch(ctx, code); err == nil {
			if replace == nil || !replace(existing, row) {
				continue
			}
		}
		_ = store.WriteToCache(ctx, code, row)
	}
	return &Table[V]{name: name, store: store}
}

// EmptyTable returns a table with no rows.
func EmptyTable[V any](name string) *Table[V] {
	return &Table[V]{name: name, store: cache.NewInMemoryCache[string, V](nil)}
}

// Lookup returns the row for code. Codes match exactly after trimming.
func (t *Table[V]) Lookup(ctx context.Context, code string) (V, error) {
	var zero V
	code = normalizeCode(code)
	if code == "" {
		return zero, fmt.Errorf("%s: empty code: %w", t.name, ErrNotFound)
	}
	v, err := t.store.Fetch(ctx, code)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return zero, fmt.Errorf("%s %q: %w", t.name, code, ErrNotFound)
		}
		return zero, err
	}
	return v, nil
}

// Name is the table name used in logs and metrics.
func (t *Table[V]) Name() string { return t.name }

// Len reports the number of indexed codes.
func (t *Table[V]) Len() int { return t.store.Len() }

// Entries copies the table into a map, for seeding remote stores.
func (t *Table[V]) Entries() map[string]V {
	out := make(map[string]V, t.store.Len())
	t.store.Range(func(k string, v V) bool {
		out[k] = v
		return true
	})
	return out
}

func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == `\N` || code == "-" {
		return ""
	}
	return code
}
