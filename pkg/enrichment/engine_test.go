package enrichment_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/cache"
	"github.com/illmade-knight/go-telex/pkg/enrichment"
	"github.com/illmade-knight/go-telex/pkg/reference"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

func testDataset() *reference.Dataset {
	return &reference.Dataset{
		Airlines: reference.NewTable("airlines",
			[]reference.Airline{{Name: "Royal Air Maroc", IATA: "AT", ICAO: "RAM", Country: "Morocco", Active: "Y"}},
			func(a reference.Airline) string { return a.IATA }, nil),
		Airports: reference.NewTable("airports",
			[]reference.Airport{
				{Name: "Mohammed V International Airport", IATA: "CMN", Timezone: "Africa/Casablanca"},
				{Name: "Charles de Gaulle International Airport", IATA: "CDG", Timezone: "Europe/Paris"},
			},
			func(a reference.Airport) string { return a.IATA }, nil),
		Aircraft: reference.NewTable("aircraft",
			[]reference.Aircraft{{Name: "Boeing 737-800", IATA: "738", ICAO: "B738"}},
			func(a reference.Aircraft) string { return a.IATA }, nil),
		Countries: reference.EmptyTable[reference.Country]("countries"),
	}
}

func TestEngine_Enrich(t *testing.T) {
	ctx := context.Background()
	engine, err := enrichment.NewEngine(testDataset(), nil, zerolog.Nop())
	require.NoError(t, err)

	t.Run("all codes resolve", func(t *testing.T) {
		// Arrange
		rec := telex.NewEmptyRecord(telex.TypeSSM)
		rec.FlightDesignator = "AT201"
		rec.DepartureAirport = "CMN"
		rec.ArrivalAirport = "CDG"
		rec.SSM.AircraftType = "738"

		// Act
		got := engine.Enrich(ctx, rec)

		// Assert
		assert.Equal(t, telex.Enrichment{
			AirlineName:          "Royal Air Maroc",
			AirlineCountry:       "Morocco",
			DepartureAirportName: "Mohammed V International Airport",
			DepartureTimezone:    "Africa/Casablanca",
			ArrivalAirportName:   "Charles de Gaulle International Airport",
			ArrivalTimezone:      "Europe/Paris",
			AircraftName:         "Boeing 737-800",
		}, got.Enrichment)
		assert.Empty(t, rec.Enrichment, "input record is not modified")
	})

	t.Run("unknown codes leave fields empty", func(t *testing.T) {
		// Arrange
		rec := telex.NewEmptyRecord(telex.TypeMVT)
		rec.FlightDesignator = "ZZ999"
		rec.DepartureAirport = "CMN"
		rec.ArrivalAirport = "XXX"

		// Act
		got := engine.Enrich(ctx, rec)

		// Assert
		assert.Empty(t, got.Enrichment.AirlineName)
		assert.Equal(t, "Mohammed V International Airport", got.Enrichment.DepartureAirportName)
		assert.Empty(t, got.Enrichment.ArrivalAirportName)
		assert.Empty(t, got.Enrichment.AircraftName)
	})

	t.Run("enriching twice is stable", func(t *testing.T) {
		// Arrange
		rec := telex.NewEmptyRecord(telex.TypeLDM)
		rec.FlightDesignator = "AT201"
		rec.ArrivalAirport = "CDG"
		rec.LDM.AircraftType = "738"

		// Act
		once := engine.Enrich(ctx, rec)
		twice := engine.Enrich(ctx, once)

		// Assert
		assert.Equal(t, once, twice)
	})

	t.Run("unknown record is left alone", func(t *testing.T) {
		rec := telex.ParsedRecord{Type: telex.TypeUnknown}
		assert.Equal(t, rec, engine.Enrich(ctx, rec))
	})
}

func TestEngine_EmptyDatasetReportsMisses(t *testing.T) {
	ctx := context.Background()

	// Arrange
	ds := &reference.Dataset{
		Airlines:  reference.EmptyTable[reference.Airline]("airlines"),
		Airports:  reference.EmptyTable[reference.Airport]("airports"),
		Aircraft:  reference.EmptyTable[reference.Aircraft]("aircraft"),
		Countries: reference.EmptyTable[reference.Country]("countries"),
	}
	misses := enrichment.NewMissTracker(cache.NewInMemoryPresenceCache[string, int64](0), zerolog.Nop())
	engine, err := enrichment.NewEngine(ds, misses, zerolog.Nop())
	require.NoError(t, err)
	rec := telex.NewEmptyRecord(telex.TypeMVT)
	rec.FlightDesignator = "AT201"
	rec.DepartureAirport = "CMN"

	// Act
	got := engine.Enrich(ctx, rec)

	// Assert
	assert.Empty(t, got.Enrichment)
	assert.True(t, misses.Seen(ctx, "airlines", "AT"))
	assert.True(t, misses.Seen(ctx, "airports", "CMN"))
}
