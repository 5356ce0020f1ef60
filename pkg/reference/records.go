// Package reference holds the code lookup tables used to enrich parsed telexes:
// airlines, airports and aircraft by IATA code and countries by ISO code.
package reference

import (
	"encoding/json"
	"strings"
)

// Airline is one row of the airline table. JSON names follow the published
// airlines.json layout.
type Airline struct {
	ID       json.Number `json:"Airline ID" firestore:"id"`
	Name     string      `json:"Name" firestore:"name"`
	Alias    string      `json:"Alias" firestore:"alias"`
	IATA     string      `json:"IATA" firestore:"iata"`
	ICAO     string      `json:"ICAO" firestore:"icao"`
	Callsign string      `json:"Callsign" firestore:"callsign"`
	Country  string      `json:"Country" firestore:"country"`
	Active   string      `json:"Active" firestore:"active"`
}

// IsActive reports whether the airline is flagged as operating.
func (a Airline) IsActive() bool { return strings.EqualFold(a.Active, "Y") }

// Airport is one row of the extended airport table.
type Airport struct {
	ID        int     `json:"airportId" firestore:"id"`
	Name      string  `json:"name" firestore:"name"`
	City      string  `json:"city" firestore:"city"`
	Country   string  `json:"country" firestore:"country"`
	IATA      string  `json:"iata" firestore:"iata"`
	ICAO      string  `json:"icao" firestore:"icao"`
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
	Altitude  int     `json:"altitude" firestore:"altitude"`
	// UTCOffset is hours from UTC. Timezone is the IANA zone name.
	UTCOffset float64 `json:"timezone" firestore:"utcOffset"`
	DST       string  `json:"dst" firestore:"dst"`
	Timezone  string  `json:"tzDatabaseTimezone" firestore:"timezone"`
	Type      string  `json:"type" firestore:"type"`
	Source    string  `json:"source" firestore:"source"`
}

// Aircraft is one row of the aircraft type table.
type Aircraft struct {
	Name string `json:"name" firestore:"name"`
	IATA string `json:"iataCode" firestore:"iata"`
	ICAO string `json:"icaoCode" firestore:"icao"`
}

// Country is one row of the country table.
type Country struct {
	Name      string `json:"name" firestore:"name"`
	ISOCode   string `json:"iso_code" firestore:"isoCode"`
	DafifCode string `json:"dafif_code,omitempty" firestore:"dafifCode"`
}

// Kind names a reference table.
type Kind string

const (
	KindAirlines  Kind = "airlines"
	KindAirports  Kind = "airports"
	KindAircraft  Kind = "aircraft"
	KindCountries Kind = "countries"
)

// Kinds lists every table in load order.
var Kinds = []Kind{KindAirlines, KindAirports, KindAircraft, KindCountries}

func airlineKey(a Airline) string   { return a.IATA }
func airportKey(a Airport) string   { return a.IATA }
func aircraftKey(a Aircraft) string { return a.IATA }
func countryKey(c Country) string   { return c.ISOCode }

// preferActive lets an operating airline replace a defunct one that shares its code.
func preferActive(existing, candidate Airline) bool {
	return !existing.IsActive() && candidate.IsActive()
}
