package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/config"
	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

func TestApp_ShutdownDrainsExports(t *testing.T) {
	// Arrange
	app := NewApp(&config.Config{}, zerolog.Nop())
	feed := messagepipeline.NewChannelConsumer(32)
	archive.Feed(app.archive, feed, zerolog.Nop())

	var exported atomic.Int32
	export, err := messagepipeline.NewBatchingService(messagepipeline.BatchingServiceConfig{
		NumWorkers:    2,
		BatchSize:     3,
		FlushInterval: time.Hour,
	}, feed,
		func(_ context.Context, msg *messagepipeline.Message) (*archive.Entry, bool, error) {
			e, err := archive.DecodeEntry(msg)
			return &e, false, err
		},
		func(_ context.Context, batch []messagepipeline.ProcessableItem[archive.Entry]) error {
			exported.Add(int32(len(batch)))
			return nil
		}, zerolog.Nop())
	require.NoError(t, err)
	app.sinks = append(app.sinks, export)

	appendN := func(n int) {
		for i := 0; i < n; i++ {
			app.archive.Append("=TEXT\nMVT", telex.NewEmptyRecord(telex.TypeMVT), "test")
		}
	}
	// The source archives its in-flight telexes while it stops.
	app.sources = append(app.sources, stopOnly{func(context.Context) error {
		appendN(2)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, app.startServices(ctx))

	// Act
	appendN(5)
	cancel()
	time.Sleep(50 * time.Millisecond)
	appendN(5)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, app.stopServices(stopCtx))

	// Assert
	assert.Equal(t, 12, app.archive.Total())
	assert.Equal(t, int32(12), exported.Load())
}
