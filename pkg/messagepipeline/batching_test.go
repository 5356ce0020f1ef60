package messagepipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
)

func TestBatchingService_FlushesBySizeAndOnStop(t *testing.T) {
	// Arrange
	consumer := messagepipeline.NewChannelConsumer(10)
	var mu sync.Mutex
	var batches [][]string
	processor := func(_ context.Context, batch []messagepipeline.ProcessableItem[string]) error {
		var got []string
		for _, item := range batch {
			got = append(got, *item.Payload)
			item.Original.Ack()
		}
		mu.Lock()
		batches = append(batches, got)
		mu.Unlock()
		return nil
	}
	transformer := func(_ context.Context, msg *messagepipeline.Message) (*string, bool, error) {
		if string(msg.Payload) == "skip" {
			return nil, true, nil
		}
		s := string(msg.Payload)
		return &s, false, nil
	}
	service, err := messagepipeline.NewBatchingService(messagepipeline.BatchingServiceConfig{
		NumWorkers:    1,
		BatchSize:     2,
		FlushInterval: time.Hour,
	}, consumer, transformer, processor, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, service.Start(ctx))

	// Act
	for _, p := range []string{"a", "skip", "b", "c"} {
		require.NoError(t, consumer.Push(ctx, messagepipeline.NewMessage(p, []byte(p), messagepipeline.SourceArchive)))
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, service.Stop(stopCtx))

	// Assert
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, batches)
}

func TestNewBatchingService_RejectsNilDependencies(t *testing.T) {
	_, err := messagepipeline.NewBatchingService[string](messagepipeline.BatchingServiceConfig{}, nil, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}
