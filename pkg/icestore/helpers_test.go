package icestore_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/icestore"
)

// mockGCSWriter buffers object content in memory.
type mockGCSWriter struct {
	buf      bytes.Buffer
	closed   bool
	closeErr error
}

func (m *mockGCSWriter) Write(p []byte) (int, error) {
	if m.closed {
		return 0, errors.New("write on closed writer")
	}
	return m.buf.Write(p)
}

func (m *mockGCSWriter) Close() error {
	if m.closed {
		return errors.New("already closed")
	}
	m.closed = true
	return m.closeErr
}

type mockGCSObjectHandle struct {
	writer *mockGCSWriter
}

func (m *mockGCSObjectHandle) NewWriter(_ context.Context) icestore.GCSWriter {
	return m.writer
}

type mockGCSBucketHandle struct {
	mu       sync.Mutex
	objects  map[string]*mockGCSObjectHandle
	closeErr error
}

func (m *mockGCSBucketHandle) Object(name string) icestore.GCSObjectHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string]*mockGCSObjectHandle)
	}
	if _, ok := m.objects[name]; !ok {
		m.objects[name] = &mockGCSObjectHandle{writer: &mockGCSWriter{closeErr: m.closeErr}}
	}
	return m.objects[name]
}

type mockGCSClient struct {
	bucket *mockGCSBucketHandle
}

func newMockGCSClient(failClose bool) *mockGCSClient {
	b := &mockGCSBucketHandle{}
	if failClose {
		b.closeErr = errors.New("gcs unavailable")
	}
	return &mockGCSClient{bucket: b}
}

func (m *mockGCSClient) Bucket(_ string) icestore.GCSBucketHandle {
	return m.bucket
}

// objects returns the decoded records of every uploaded object, by name.
func (m *mockGCSClient) objects(t *testing.T) map[string][]icestore.ArchivalRecord {
	t.Helper()
	m.bucket.mu.Lock()
	defer m.bucket.mu.Unlock()

	out := make(map[string][]icestore.ArchivalRecord, len(m.bucket.objects))
	for name, obj := range m.bucket.objects {
		gz, err := gzip.NewReader(bytes.NewReader(obj.writer.buf.Bytes()))
		require.NoError(t, err)
		content, err := io.ReadAll(gz)
		require.NoError(t, err)

		var recs []icestore.ArchivalRecord
		for _, line := range bytes.Split(bytes.TrimSpace(content), []byte("\n")) {
			var r icestore.ArchivalRecord
			require.NoError(t, json.Unmarshal(line, &r))
			recs = append(recs, r)
		}
		out[name] = recs
	}
	return out
}
