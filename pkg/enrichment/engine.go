package enrichment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/reference"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

// Engine applies the airline, airport and aircraft enrichers to a record.
type Engine struct {
	enrichers []RecordEnricher
}

// NewEngine wires the enrichers over ds. misses may be nil.
func NewEngine(ds *reference.Dataset, misses *MissTracker, logger zerolog.Logger) (*Engine, error) {
	airline, err := NewEnricherFunc("airlines", ds.Airlines.Lookup,
		func(rec *telex.ParsedRecord) (string, bool) { return rec.AirlineCode() },
		func(rec *telex.ParsedRecord, a reference.Airline) {
			rec.Enrichment.AirlineName = a.Name
			rec.Enrichment.AirlineCountry = a.Country
		}, misses, logger)
	if err != nil {
		return nil, err
	}

	departure, err := NewEnricherFunc("airports", ds.Airports.Lookup,
		func(rec *telex.ParsedRecord) (string, bool) { return rec.DepartureAirport, rec.DepartureAirport != "" },
		func(rec *telex.ParsedRecord, a reference.Airport) {
			rec.Enrichment.DepartureAirportName = a.Name
			rec.Enrichment.DepartureTimezone = a.Timezone
		}, misses, logger)
	if err != nil {
		return nil, err
	}

	arrival, err := NewEnricherFunc("airports", ds.Airports.Lookup,
		func(rec *telex.ParsedRecord) (string, bool) { return rec.ArrivalAirport, rec.ArrivalAirport != "" },
		func(rec *telex.ParsedRecord, a reference.Airport) {
			rec.Enrichment.ArrivalAirportName = a.Name
			rec.Enrichment.ArrivalTimezone = a.Timezone
		}, misses, logger)
	if err != nil {
		return nil, err
	}

	aircraft, err := NewEnricherFunc("aircraft", ds.Aircraft.Lookup,
		func(rec *telex.ParsedRecord) (string, bool) {
			t := rec.AircraftType()
			return t, t != ""
		},
		func(rec *telex.ParsedRecord, a reference.Aircraft) {
			rec.Enrichment.AircraftName = a.Name
		}, misses, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{enrichers: []RecordEnricher{airline, departure, arrival, aircraft}}, nil
}

// Enrich returns rec with every resolvable enrichment field filled. Running it
// again on its own output gives the same record.
func (e *Engine) Enrich(ctx context.Context, rec telex.ParsedRecord) telex.ParsedRecord {
	for _, enrich := range e.enrichers {
		enrich(ctx, &rec)
	}
	return rec
}
