// Package icestore exports archived telexes to Google Cloud Storage as
// gzipped JSON-lines objects, grouped by day and message type.
package icestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

// ArchivalRecord is one line of an exported object.
type ArchivalRecord struct {
	Seq        int                `json:"seq"`
	ID         string             `json:"id"`
	BatchKey   string             `json:"batchKey"`
	ReceivedAt time.Time          `json:"receivedAt"`
	Source     string             `json:"source,omitempty"`
	Type       telex.MessageType  `json:"type"`
	Raw        string             `json:"raw"`
	Record     telex.ParsedRecord `json:"record"`
}

// GetBatchKey returns the object path segment the record is grouped under.
func (r *ArchivalRecord) GetBatchKey() string {
	return r.BatchKey
}

// BatchKey builds the grouping key "YYYY/MM/DD/<type>" in UTC.
func BatchKey(ts time.Time, t telex.MessageType) string {
	ts = ts.UTC()
	kind := strings.ToLower(string(t))
	if kind == "" {
		kind = "unknown"
	}
	return fmt.Sprintf("%d/%02d/%02d/%s", ts.Year(), ts.Month(), ts.Day(), kind)
}

// NewArchivalRecord converts an archive entry.
func NewArchivalRecord(e archive.Entry) *ArchivalRecord {
	return &ArchivalRecord{
		Seq:        e.Seq,
		ID:         e.ID,
		BatchKey:   BatchKey(e.ReceivedAt, e.Record.Type),
		ReceivedAt: e.ReceivedAt,
		Source:     e.Source,
		Type:       e.Record.Type,
		Raw:        e.Raw,
		Record:     e.Record,
	}
}

// ArchivalTransformer decodes an archive feed message into an ArchivalRecord.
func ArchivalTransformer(_ context.Context, msg *messagepipeline.Message) (*ArchivalRecord, bool, error) {
	e, err := archive.DecodeEntry(msg)
	if err != nil {
		return nil, false, err
	}
	return NewArchivalRecord(e), false, nil
}
