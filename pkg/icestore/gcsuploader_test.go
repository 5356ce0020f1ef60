package icestore_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/icestore"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

func TestNewGCSBatchUploader_Validation(t *testing.T) {
	_, err := icestore.NewGCSBatchUploader(nil, icestore.GCSBatchUploaderConfig{BucketName: "b"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = icestore.NewGCSBatchUploader(newMockGCSClient(false), icestore.GCSBatchUploaderConfig{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestGCSBatchUploader_UploadBatch_SingleGroup(t *testing.T) {
	// Arrange
	mockClient := newMockGCSClient(false)
	uploader, err := icestore.NewGCSBatchUploader(mockClient, icestore.GCSBatchUploaderConfig{
		BucketName:   "telex-archive",
		ObjectPrefix: "exports",
	}, zerolog.Nop())
	require.NoError(t, err)

	batch := []*icestore.ArchivalRecord{
		{Seq: 1, ID: "e-1", BatchKey: "2026/10/18/mvt", Raw: "MVT\nAT201/18"},
		{Seq: 2, ID: "e-2", BatchKey: "2026/10/18/mvt", Raw: "MVT\nAT202/18"},
	}

	// Act
	err = uploader.UploadBatch(context.Background(), batch)
	require.NoError(t, err)

	// Assert
	objects := mockClient.objects(t)
	require.Len(t, objects, 1)
	for name, recs := range objects {
		assert.True(t, strings.HasPrefix(name, "exports/2026/10/18/mvt/000001-000002-"), name)
		assert.True(t, strings.HasSuffix(name, ".jsonl.gz"), name)
		require.Len(t, recs, 2)
		assert.Equal(t, "e-1", recs[0].ID)
		assert.Equal(t, "e-2", recs[1].ID)
	}
}

func TestGCSBatchUploader_UploadBatch_OutOfOrderSeq(t *testing.T) {
	// Arrange
	mockClient := newMockGCSClient(false)
	uploader, err := icestore.NewGCSBatchUploader(mockClient, icestore.GCSBatchUploaderConfig{BucketName: "telex-archive"}, zerolog.Nop())
	require.NoError(t, err)

	batch := []*icestore.ArchivalRecord{
		{Seq: 7, ID: "e-7", BatchKey: "2026/10/18/mvt"},
		{Seq: 3, ID: "e-3", BatchKey: "2026/10/18/mvt"},
		{Seq: 12, ID: "e-12", BatchKey: "2026/10/18/mvt"},
		{Seq: 5, ID: "e-5", BatchKey: "2026/10/18/mvt"},
	}

	// Act
	err = uploader.UploadBatch(context.Background(), batch)
	require.NoError(t, err)

	// Assert
	objects := mockClient.objects(t)
	require.Len(t, objects, 1)
	for name, recs := range objects {
		assert.True(t, strings.HasPrefix(name, "2026/10/18/mvt/000003-000012-"), name)
		var ids []string
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"e-3", "e-5", "e-7", "e-12"}, ids)
	}
}

func TestGCSBatchUploader_UploadBatch_MultipleGroups(t *testing.T) {
	// Arrange
	mockClient := newMockGCSClient(false)
	uploader, err := icestore.NewGCSBatchUploader(mockClient, icestore.GCSBatchUploaderConfig{BucketName: "telex-archive"}, zerolog.Nop())
	require.NoError(t, err)

	batch := []*icestore.ArchivalRecord{
		{Seq: 1, BatchKey: icestore.BatchKey(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), telex.TypeASM)},
		{Seq: 2, BatchKey: icestore.BatchKey(time.Date(2026, 10, 18, 9, 1, 0, 0, time.UTC), telex.TypeSSM)},
		{Seq: 3, BatchKey: icestore.BatchKey(time.Date(2026, 10, 18, 9, 2, 0, 0, time.UTC), telex.TypeASM)},
		nil,
	}

	// Act
	err = uploader.UploadBatch(context.Background(), batch)
	require.NoError(t, err)

	// Assert
	objects := mockClient.objects(t)
	require.Len(t, objects, 2)
	counts := map[string]int{}
	for name, recs := range objects {
		switch {
		case strings.HasPrefix(name, "2026/10/18/asm/"):
			counts["asm"] = len(recs)
		case strings.HasPrefix(name, "2026/10/18/ssm/"):
			counts["ssm"] = len(recs)
		}
	}
	assert.Equal(t, map[string]int{"asm": 2, "ssm": 1}, counts)
}

func TestGCSBatchUploader_UploadBatch_CloseFailure(t *testing.T) {
	uploader, err := icestore.NewGCSBatchUploader(newMockGCSClient(true), icestore.GCSBatchUploaderConfig{BucketName: "b"}, zerolog.Nop())
	require.NoError(t, err)

	err = uploader.UploadBatch(context.Background(), []*icestore.ArchivalRecord{{Seq: 1, BatchKey: "k"}})

	assert.ErrorContains(t, err, "gcs unavailable")
}

func TestBatchKey(t *testing.T) {
	ts := time.Date(2026, 1, 2, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))

	assert.Equal(t, "2026/01/03/ldm", icestore.BatchKey(ts, telex.TypeLDM))
	assert.Equal(t, "2026/01/03/unknown", icestore.BatchKey(ts, ""))
}
