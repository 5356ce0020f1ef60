// Package bqstore exports archived telexes to a BigQuery table, one flattened
// row per telex.
package bqstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
)

// TelexRow is the BigQuery shape of an archived telex. Variant fields are kept
// whole in RecordJSON.
type TelexRow struct {
	Seq                  int       `bigquery:"seq"`
	ID                   string    `bigquery:"id"`
	ReceivedAt           time.Time `bigquery:"received_at"`
	Source               string    `bigquery:"source"`
	MessageType          string    `bigquery:"message_type"`
	FlightDesignator     string    `bigquery:"flight_designator"`
	DepartureAirport     string    `bigquery:"departure_airport"`
	ArrivalAirport       string    `bigquery:"arrival_airport"`
	AircraftType         string    `bigquery:"aircraft_type"`
	AirlineName          string    `bigquery:"airline_name"`
	AirlineCountry       string    `bigquery:"airline_country"`
	DepartureAirportName string    `bigquery:"departure_airport_name"`
	DepartureTimezone    string    `bigquery:"departure_timezone"`
	ArrivalAirportName   string    `bigquery:"arrival_airport_name"`
	ArrivalTimezone      string    `bigquery:"arrival_timezone"`
	AircraftName         string    `bigquery:"aircraft_name"`
	Raw                  string    `bigquery:"raw"`
	RecordJSON           string    `bigquery:"record_json"`
}

// NewTelexRow flattens an archive entry.
func NewTelexRow(e archive.Entry) (*TelexRow, error) {
	recordJSON, err := json.Marshal(e.Record)
	if err != nil {
		return nil, fmt.Errorf("encode record %d: %w", e.Seq, err)
	}
	rec := e.Record
	return &TelexRow{
		Seq:                  e.Seq,
		ID:                   e.ID,
		ReceivedAt:           e.ReceivedAt,
		Source:               e.Source,
		MessageType:          string(rec.Type),
		FlightDesignator:     rec.FlightDesignator,
		DepartureAirport:     rec.DepartureAirport,
		ArrivalAirport:       rec.ArrivalAirport,
		AircraftType:         rec.AircraftType(),
		AirlineName:          rec.Enrichment.AirlineName,
		AirlineCountry:       rec.Enrichment.AirlineCountry,
		DepartureAirportName: rec.Enrichment.DepartureAirportName,
		DepartureTimezone:    rec.Enrichment.DepartureTimezone,
		ArrivalAirportName:   rec.Enrichment.ArrivalAirportName,
		ArrivalTimezone:      rec.Enrichment.ArrivalTimezone,
		AircraftName:         rec.Enrichment.AircraftName,
		Raw:                  e.Raw,
		RecordJSON:           string(recordJSON),
	}, nil
}

// TelexRowTransformer decodes an archive feed message into a row.
func TelexRowTransformer(_ context.Context, msg *messagepipeline.Message) (*TelexRow, bool, error) {
	e, err := archive.DecodeEntry(msg)
	if err != nil {
		return nil, false, err
	}
	row, err := NewTelexRow(e)
	if err != nil {
		return nil, false, err
	}
	return row, false, nil
}
