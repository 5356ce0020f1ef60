package messagepipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
)

const telexLog = "=PRIORITY\nQU\n=TEXT\nMVT\nAT201/12.CNRGT.CMN\n\n" +
	"=TEXT\nLDM\nAT201/12\n\n\n" +
	"=TEXT\nSSM\nNEW"

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func receive(t *testing.T, consumer messagepipeline.MessageConsumer) messagepipeline.Message {
	t.Helper()
	select {
	case msg, ok := <-consumer.Messages():
		require.True(t, ok, "channel closed early")
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for telex")
	}
	return messagepipeline.Message{}
}

func TestFileTailConsumer_Tail(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	path := filepath.Join(t.TempDir(), "telex.log")
	appendFile(t, path, telexLog)

	consumer, err := messagepipeline.NewFileTailConsumer(messagepipeline.FileTailConfig{
		Path:         path,
		PollInterval: 20 * time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)

	// Act
	require.NoError(t, consumer.Start(ctx))
	t.Cleanup(func() { _ = consumer.Stop(context.Background()) })

	// Assert
	first := receive(t, consumer)
	assert.Equal(t, "=PRIORITY\nQU\n=TEXT\nMVT\nAT201/12.CNRGT.CMN\n", string(first.Payload))
	assert.Equal(t, messagepipeline.SourceFile, first.Source)
	second := receive(t, consumer)
	assert.Equal(t, "=TEXT\nLDM\nAT201/12\n", string(second.Payload))
	assert.NotEqual(t, first.ID, second.ID)

	t.Run("unterminated telex waits for its blank line", func(t *testing.T) {
		select {
		case msg := <-consumer.Messages():
			t.Fatalf("unexpected telex %q", msg.Payload)
		case <-time.After(100 * time.Millisecond):
		}

		appendFile(t, path, "\n\n")

		third := receive(t, consumer)
		assert.Equal(t, "=TEXT\nSSM\nNEW\n", string(third.Payload))
	})

	t.Run("truncated file is read from the start", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("MVT\nAA1\n\n"), 0o644))

		msg := receive(t, consumer)
		assert.Equal(t, "MVT\nAA1\n", string(msg.Payload))
	})
}

func TestFileTailConsumer_Replay(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "telex.log")
	appendFile(t, path, telexLog)
	consumer, err := messagepipeline.NewFileTailConsumer(messagepipeline.FileTailConfig{Path: path, Replay: true}, zerolog.Nop())
	require.NoError(t, err)

	// Act
	require.NoError(t, consumer.Start(context.Background()))

	// Assert
	var payloads []string
	for msg := range consumer.Messages() {
		payloads = append(payloads, string(msg.Payload))
	}
	assert.Equal(t, []string{
		"=PRIORITY\nQU\n=TEXT\nMVT\nAT201/12.CNRGT.CMN\n",
		"=TEXT\nLDM\nAT201/12\n",
		"=TEXT\nSSM\nNEW\n",
	}, payloads)
	select {
	case <-consumer.Done():
	case <-time.After(time.Second):
		t.Fatal("replay consumer did not finish")
	}
}

func TestFileTailConsumer_ReplayMissingFile(t *testing.T) {
	consumer, err := messagepipeline.NewFileTailConsumer(messagepipeline.FileTailConfig{
		Path:   filepath.Join(t.TempDir(), "missing.log"),
		Replay: true,
	}, zerolog.Nop())
	require.NoError(t, err)

	assert.Error(t, consumer.Start(context.Background()))
}

func TestFileTailConsumer_WakesOnWrite(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	path := filepath.Join(t.TempDir(), "telex.log")
	consumer, err := messagepipeline.NewFileTailConsumer(messagepipeline.FileTailConfig{
		Path:         path,
		PollInterval: time.Hour,
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, consumer.Start(ctx))
	t.Cleanup(func() { _ = consumer.Stop(context.Background()) })
	time.Sleep(50 * time.Millisecond)

	// Act
	appendFile(t, path, "=TEXT\nMVT\nAT201/12\n\n")

	// Assert
	msg := receive(t, consumer)
	assert.Equal(t, "=TEXT\nMVT\nAT201/12\n", string(msg.Payload))
}
