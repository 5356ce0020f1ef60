package bqstore_test

import (
	"context"
	"sync"

	"github.com/illmade-knight/go-telex/pkg/bqstore"
)

// fakeTable stands in for the BigQuery table. fail, when set, decides the
// outcome of each InsertBatch call by its 1-based attempt number.
type fakeTable struct {
	fail func(attempt int) error

	mu       sync.Mutex
	attempts int
	stored   []*bqstore.TelexRow
}

func (f *fakeTable) InsertBatch(_ context.Context, rows []*bqstore.TelexRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.fail != nil {
		if err := f.fail(f.attempts); err != nil {
			return err
		}
	}
	f.stored = append(f.stored, rows...)
	return nil
}

func (f *fakeTable) Close() error { return nil }

func (f *fakeTable) rows() []*bqstore.TelexRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*bqstore.TelexRow(nil), f.stored...)
}

func (f *fakeTable) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}
