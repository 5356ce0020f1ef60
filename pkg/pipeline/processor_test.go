package pipeline_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/dlq"
	"github.com/illmade-knight/go-telex/pkg/enrichment"
	"github.com/illmade-knight/go-telex/pkg/extractor"
	"github.com/illmade-knight/go-telex/pkg/pipeline"
	"github.com/illmade-knight/go-telex/pkg/reference"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

const ssmTelex = `=PRIORITY
QU
=DESTINATION TYPE B
STX,CMNKDAT
=ORIGIN
MADKDAT
=SMI
SSM
=TEXT
RPL
AT248
04SEP25 11SEP25 1234
J 332 J24Y275 3/HFM 4/HFM 5/AT
CMN0140 MED0740
MED0910 JED1010`

func testDataset() *reference.Dataset {
	return &reference.Dataset{
		Airlines: reference.NewTable("airlines",
			[]reference.Airline{{Name: "Royal Air Maroc", IATA: "AT", Country: "Morocco"}},
			func(a reference.Airline) string { return a.IATA }, nil),
		Airports: reference.NewTable("airports",
			[]reference.Airport{{Name: "Mohammed V International Airport", IATA: "CMN", Timezone: "Africa/Casablanca"}},
			func(a reference.Airport) string { return a.IATA }, nil),
		Aircraft: reference.NewTable("aircraft",
			[]reference.Aircraft{{Name: "Airbus A330-300", IATA: "332"}},
			func(a reference.Aircraft) string { return a.IATA }, nil),
		Countries: reference.EmptyTable[reference.Country]("countries"),
	}
}

func newProcessor(t *testing.T, arch *archive.Archive, opts ...pipeline.Option) *pipeline.Processor {
	t.Helper()
	engine, err := enrichment.NewEngine(testDataset(), nil, zerolog.Nop())
	require.NoError(t, err)
	p, err := pipeline.NewProcessor(extractor.NewRouter(zerolog.Nop()), engine, arch, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return p
}

func TestProcessor_Process_SSM(t *testing.T) {
	// Arrange
	arch := archive.New()
	p := newProcessor(t, arch)

	// Act
	entry, err := p.Process(context.Background(), ssmTelex, "file")

	// Assert
	require.NoError(t, err)
	rec := entry.Record
	require.Equal(t, telex.TypeSSM, rec.Type)
	require.NotNil(t, rec.SSM)
	assert.Equal(t, "AT248", rec.FlightDesignator)
	assert.Equal(t, "332", rec.SSM.AircraftType)
	assert.Equal(t, "04SEP25", rec.SSM.EffectiveDate)
	assert.Equal(t, "11SEP25", rec.SSM.DiscontinuationDate)
	assert.Equal(t, "1234", rec.SSM.DaysOfOperation)
	assert.Equal(t, "CMN", rec.DepartureAirport)
	assert.Equal(t, "0140", rec.SSM.DepartureTime)
	assert.Equal(t, "MED", rec.ArrivalAirport)
	assert.Equal(t, "0740", rec.SSM.ArrivalTime)

	assert.Equal(t, "Royal Air Maroc", rec.Enrichment.AirlineName)
	assert.Equal(t, "Africa/Casablanca", rec.Enrichment.DepartureTimezone)
	assert.Empty(t, rec.Enrichment.ArrivalAirportName, "MED is not in the reference data")
	assert.Equal(t, "Airbus A330-300", rec.Enrichment.AircraftName)

	assert.Equal(t, 1, arch.Total())
	latest, ok := arch.Latest()
	require.True(t, ok)
	assert.Equal(t, ssmTelex, latest.Raw)
	assert.Equal(t, "file", latest.Source)
}

func TestProcessor_Process_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"blank":           "   \n\t ",
		"short body":      "=TEXT\nAB",
		"padded body":     "=TEXT\n\n X \n",
		"no text section": "=PRIORITY QN\n=ORIGIN CASPCAT\n=MSGID 041348",
		"blank text":      "=SMI SSM\n=TEXT\n   \n",
		"headerless":      "MVT\nAT201/12.CNRGT.CMN",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			// Arrange
			arch := archive.New()
			q, err := dlq.NewQueue(t.TempDir(), zerolog.Nop())
			require.NoError(t, err)
			p := newProcessor(t, arch, pipeline.WithDeadLetters(q))

			// Act
			_, err = p.Process(context.Background(), raw, "http")

			// Assert
			assert.ErrorIs(t, err, pipeline.ErrMalformed)
			assert.Equal(t, 0, arch.Total())
			letters, err := q.List(0)
			require.NoError(t, err)
			require.Len(t, letters, 1)
			assert.Equal(t, "malformed", letters[0].Reason)
			assert.Equal(t, "http", letters[0].Source)
		})
	}
}

func TestProcessor_Process_UnknownIsStored(t *testing.T) {
	// Arrange
	arch := archive.New()
	p := newProcessor(t, arch)
	raw := "=ORIGIN\nMADKDAT\n=TEXT\nPLEASE CALL OPS\nTHANKS"

	// Act
	entry, err := p.Process(context.Background(), raw, "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, telex.NewEmptyRecord(telex.TypeUnknown), entry.Record)
	assert.Equal(t, 1, arch.Total())
}

func TestProcessor_MinLengthOption(t *testing.T) {
	p := newProcessor(t, archive.New(), pipeline.WithMinLength(10))

	_, err := p.Parse(context.Background(), "=SMI MVT\n=TEXT\nMVT AT201")

	assert.ErrorIs(t, err, pipeline.ErrMalformed)
}

func TestProcessor_ParseOnly(t *testing.T) {
	p := newProcessor(t, nil)

	entry, err := p.Process(context.Background(), ssmTelex, "cli")

	require.NoError(t, err)
	assert.Equal(t, telex.TypeSSM, entry.Record.Type)
	assert.Zero(t, entry.Seq)
}

func TestNewProcessor_RequiresDependencies(t *testing.T) {
	_, err := pipeline.NewProcessor(nil, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}
