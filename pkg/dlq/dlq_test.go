package dlq_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/dlq"
)

type recordingPublisher struct {
	payloads [][]byte
	attrs    []map[string]string
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, payload []byte, attributes map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	p.attrs = append(p.attrs, attributes)
	return nil
}

func TestNewQueue(t *testing.T) {
	t.Run("creates nested directories", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "dlq")

		q, err := dlq.NewQueue(dir, zerolog.Nop())

		require.NoError(t, err)
		assert.NotNil(t, q)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := dlq.NewQueue("", zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestQueue_WriteListPurge(t *testing.T) {
	ctx := context.Background()

	// Arrange
	q, err := dlq.NewQueue(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	// Act
	require.NoError(t, q.Write(ctx, dlq.Letter{Raw: "  ", Reason: "malformed", Source: "file"}))
	require.NoError(t, q.Write(ctx, dlq.Letter{Raw: "xy", Reason: "malformed", Error: "too short"}))

	// Assert
	letters, err := q.List(0)
	require.NoError(t, err)
	require.Len(t, letters, 2)
	assert.Equal(t, "  ", letters[0].Raw)
	assert.Equal(t, "file", letters[0].Source)
	assert.Equal(t, "too short", letters[1].Error)
	assert.False(t, letters[0].Timestamp.IsZero())

	limited, err := q.List(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	deleted, err := q.Purge()
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	letters, err = q.List(0)
	require.NoError(t, err)
	assert.Empty(t, letters)
}

func TestQueue_ForwardsToPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes the stored letter", func(t *testing.T) {
		// Arrange
		pub := &recordingPublisher{}
		q, err := dlq.NewQueue(t.TempDir(), zerolog.Nop(), dlq.WithPublisher(pub))
		require.NoError(t, err)

		// Act
		err = q.Write(ctx, dlq.Letter{Raw: "ab", Reason: "malformed", Source: "kafka"})

		// Assert
		require.NoError(t, err)
		require.Len(t, pub.payloads, 1)
		var l dlq.Letter
		require.NoError(t, json.Unmarshal(pub.payloads[0], &l))
		assert.Equal(t, "ab", l.Raw)
		assert.Equal(t, "malformed", pub.attrs[0]["reason"])
		assert.Equal(t, "kafka", pub.attrs[0]["source"])
	})

	t.Run("publish failure keeps the file", func(t *testing.T) {
		// Arrange
		pub := &recordingPublisher{err: errors.New("topic gone")}
		q, err := dlq.NewQueue(t.TempDir(), zerolog.Nop(), dlq.WithPublisher(pub))
		require.NoError(t, err)

		// Act
		err = q.Write(ctx, dlq.Letter{Raw: "ab", Reason: "malformed"})

		// Assert
		require.NoError(t, err)
		letters, err := q.List(0)
		require.NoError(t, err)
		assert.Len(t, letters, 1)
	})
}

func TestQueue_NilDiscards(t *testing.T) {
	var q *dlq.Queue
	assert.NoError(t, q.Write(context.Background(), dlq.Letter{Raw: "x"}))
	_, err := q.List(0)
	assert.Error(t, err)
}
