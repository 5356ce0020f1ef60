package reference

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// minFields is the column count of each OpenFlights .dat layout.
var minFields = map[Kind]int{
	KindAirlines:  8,
	KindAirports:  14,
	KindAircraft:  3,
	KindCountries: 2,
}

// ReadDat parses an OpenFlights .dat export into rows of the table kind
// ([]Airline, []Airport, []Aircraft or []Country). `\N` cells become empty
// values and short lines are skipped.
func ReadDat(r io.Reader, kind Kind) (any, error) {
	want, ok := minFields[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	airlines := []Airline{}
	airports := []Airport{}
	aircraft := []Aircraft{}
	countries := []Country{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", kind, line, err)
		}
		if len(rec) < want {
			continue
		}
		for i := range rec {
			rec[i] = cell(rec[i])
		}
		switch kind {
		case KindAirlines:
			airlines = append(airlines, Airline{
				ID: json.Number(rec[0]), Name: rec[1], Alias: rec[2], IATA: rec[3],
				ICAO: rec[4], Callsign: rec[5], Country: rec[6], Active: rec[7],
			})
		case KindAirports:
			airports = append(airports, Airport{
				ID:        atoi(rec[0]),
				Name:      rec[1],
				City:      rec[2],
				Country:   rec[3],
				IATA:      rec[4],
				ICAO:      rec[5],
				Latitude:  atof(rec[6]),
				Longitude: atof(rec[7]),
				Altitude:  atoi(rec[8]),
				UTCOffset: atof(rec[9]),
				DST:       rec[10],
				Timezone:  rec[11],
				Type:      rec[12],
				Source:    rec[13],
			})
		case KindAircraft:
			aircraft = append(aircraft, Aircraft{Name: rec[0], IATA: rec[1], ICAO: rec[2]})
		case KindCountries:
			c := Country{Name: rec[0], ISOCode: rec[1]}
			if len(rec) > 2 {
				c.DafifCode = rec[2]
			}
			countries = append(countries, c)
		}
	}

	switch kind {
	case KindAirlines:
		return airlines, nil
	case KindAirports:
		return airports, nil
	case KindAircraft:
		return aircraft, nil
	default:
		return countries, nil
	}
}

// ConvertDat reads an OpenFlights .dat export and writes it as the JSON array
// that Load expects.
func ConvertDat(in io.Reader, out io.Writer, kind Kind) (int, error) {
	rows, err := ReadDat(in, kind)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return 0, fmt.Errorf("encode %s: %w", kind, err)
	}
	return rowCount(rows), nil
}

func rowCount(rows any) int {
	switch v := rows.(type) {
	case []Airline:
		return len(v)
	case []Airport:
		return len(v)
	case []Aircraft:
		return len(v)
	case []Country:
		return len(v)
	}
	return 0
}

func cell(s string) string {
	s = strings.TrimSpace(s)
	if s == `\N` {
		return ""
	}
	return s
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
