package icestore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/icestore"
	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/retry"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

type fakeUploader struct {
	mu       sync.Mutex
	failures int
	calls    int
	batches  [][]*icestore.ArchivalRecord
}

func (f *fakeUploader) UploadBatch(_ context.Context, items []*icestore.ArchivalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient upload failure")
	}
	f.batches = append(f.batches, items)
	return nil
}

func (f *fakeUploader) uploaded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  time.Second,
	}
}

func startService(t *testing.T, uploader icestore.BatchUploader, policy retry.Policy) (*archive.Archive, *messagepipeline.ChannelConsumer) {
	t.Helper()
	a := archive.New()
	feed := messagepipeline.NewChannelConsumer(16)
	archive.Feed(a, feed, zerolog.Nop())

	service, err := icestore.NewIceStorageService(messagepipeline.BatchingServiceConfig{
		NumWorkers:    1,
		BatchSize:     2,
		FlushInterval: 50 * time.Millisecond,
	}, feed, uploader, policy, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, service.Start(ctx))
	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = service.Stop(stopCtx)
	})
	return a, feed
}

func TestIceStorageService_ExportsArchivedEntries(t *testing.T) {
	// Arrange
	uploader := &fakeUploader{}
	a, _ := startService(t, uploader, fastPolicy(1))

	// Act
	a.Append("MVT\nAT201/18", telex.ParsedRecord{Type: telex.TypeMVT, FlightDesignator: "AT201"}, "file")
	a.Append("ASM\nNEW", telex.ParsedRecord{Type: telex.TypeASM}, "pubsub")
	a.Append("GARBAGE", telex.ParsedRecord{Type: telex.TypeUnknown}, "http")

	// Assert
	require.Eventually(t, func() bool { return uploader.uploaded() == 3 }, 2*time.Second, 10*time.Millisecond)
	uploader.mu.Lock()
	defer uploader.mu.Unlock()
	first := uploader.batches[0][0]
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, telex.TypeMVT, first.Type)
	assert.Equal(t, "AT201", first.Record.FlightDesignator)
	assert.Contains(t, first.BatchKey, "/mvt")
}

func TestIceStorageService_RetriesTransientFailures(t *testing.T) {
	uploader := &fakeUploader{failures: 2}
	a, _ := startService(t, uploader, fastPolicy(3))

	a.Append("MVT", telex.ParsedRecord{Type: telex.TypeMVT}, "")
	a.Append("MVT", telex.ParsedRecord{Type: telex.TypeMVT}, "")

	require.Eventually(t, func() bool { return uploader.uploaded() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestIceStorageService_NacksWhenRetriesExhausted(t *testing.T) {
	// Arrange
	uploader := &fakeUploader{failures: 100}
	feed := messagepipeline.NewChannelConsumer(4)
	service, err := icestore.NewIceStorageService(messagepipeline.BatchingServiceConfig{
		NumWorkers: 1, BatchSize: 1, FlushInterval: time.Second,
	}, feed, uploader, fastPolicy(2), zerolog.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, service.Start(ctx))

	var nacked atomic.Int32
	msg := messagepipeline.NewMessage("e-1", []byte(`{"seq":1,"id":"e-1","raw":"MVT","record":{"type":"MVT"}}`), messagepipeline.SourceArchive)
	msg.Nack = func() { nacked.Add(1) }

	// Act
	require.NoError(t, feed.Push(context.Background(), msg))

	// Assert
	require.Eventually(t, func() bool { return nacked.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, uploader.uploaded())
}

func TestIceStorageService_UndecodableEntryIsNacked(t *testing.T) {
	uploader := &fakeUploader{}
	feed := messagepipeline.NewChannelConsumer(4)
	service, err := icestore.NewIceStorageService(messagepipeline.BatchingServiceConfig{NumWorkers: 1, BatchSize: 1}, feed, uploader, fastPolicy(1), zerolog.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, service.Start(ctx))

	var nacked atomic.Int32
	msg := messagepipeline.NewMessage("bad", []byte("not json"), messagepipeline.SourceArchive)
	msg.Nack = func() { nacked.Add(1) }
	require.NoError(t, feed.Push(context.Background(), msg))

	require.Eventually(t, func() bool { return nacked.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, uploader.uploaded())
}

func TestNewIceStorageService_NilUploader(t *testing.T) {
	_, err := icestore.NewIceStorageService(messagepipeline.BatchingServiceConfig{}, messagepipeline.NewChannelConsumer(1), nil, fastPolicy(1), zerolog.Nop())
	assert.Error(t, err)
}
