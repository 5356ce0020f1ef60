package reference

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/metrics"
)

// Paths locates the JSON file of each table. An empty path leaves that table empty.
type Paths struct {
	Airlines  string `mapstructure:"airlines"`
	Airports  string `mapstructure:"airports"`
	Aircraft  string `mapstructure:"aircraft"`
	Countries string `mapstructure:"countries"`
}

// LocalDataset is a Dataset whose tables live in process.
type LocalDataset struct {
	Airlines  *Table[Airline]
	Airports  *Table[Airport]
	Aircraft  *Table[Aircraft]
	Countries *Table[Country]
}

// Dataset exposes the local tables through the Source interface.
func (d *LocalDataset) Dataset() *Dataset {
	return &Dataset{
		Airlines:  d.Airlines,
		Airports:  d.Airports,
		Aircraft:  d.Aircraft,
		Countries: d.Countries,
	}
}

// Load reads every table named in paths. A table that fails to load is logged
// and replaced with an empty one so the rest of the pipeline keeps running.
func Load(paths Paths, logger zerolog.Logger) *LocalDataset {
	log := logger.With().Str("component", "ReferenceLoader").Logger()
	return &LocalDataset{
		Airlines:  LoadTable(string(KindAirlines), paths.Airlines, airlineKey, preferActive, log),
		Airports:  LoadTable[Airport](string(KindAirports), paths.Airports, airportKey, nil, log),
		Aircraft:  LoadTable[Aircraft](string(KindAircraft), paths.Aircraft, aircraftKey, nil, log),
		Countries: LoadTable[Country](string(KindCountries), paths.Countries, countryKey, nil, log),
	}
}

// LoadTable reads one JSON array file into a table, degrading to an empty table on error.
func LoadTable[V any](name, path string, key func(V) string, replace func(existing, candidate V) bool, logger zerolog.Logger) *Table[V] {
	if path == "" {
		logger.Warn().Str("table", name).Msg("No file configured for reference table, using an empty table.")
		metrics.SetReferenceTableSize(name, 0)
		return EmptyTable[V](name)
	}

	rows, err := readJSONFile[V](path)
	if err != nil {
		logger.Warn().Err(err).Str("table", name).Str("path", path).Msg("Failed to load reference table, using an empty table.")
		metrics.SetReferenceTableSize(name, 0)
		return EmptyTable[V](name)
	}

	t := NewTable(name, rows, key, replace)
	logger.Info().Str("table", name).Int("rows", len(rows)).Int("codes", t.Len()).Msg("Reference table loaded.")
	metrics.SetReferenceTableSize(name, t.Len())
	return t
}

func readJSONFile[V any](path string) ([]V, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON[V](f)
}

// ReadJSON decodes a JSON array of rows.
func ReadJSON[V any](r io.Reader) ([]V, error) {
	var rows []V
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode reference rows: %w", err)
	}
	return rows, nil
}
