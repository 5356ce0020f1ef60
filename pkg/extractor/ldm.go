package extractor

import (
	"strconv"
	"strings"

	"github.com/illmade-knight/go-telex/pkg/telex"
)

// ldmRules is the load message grammar:
//
//	LDM
//	AT201/12.CNRGT.738.C12Y162.2/5
//	-CDG.120/8/2.T1250.1/600.3/650.PAX/12/108.PAD/0/0
//	SI B/450 C/200 M/50 AVI DGR
var ldmRules = RuleSet[telex.ParsedRecord]{
	First("flight",
		`^(`+airlineCode+flightNumber+`[A-Z]?)/([0-9]{2})`+
			`(?:\.(`+registration+`))?`+
			`(?:\.([0-9][A-Z0-9]{2}))?`+
			`(?:\.((?:[A-Z][0-9]{1,3})+))?`+
			`(?:\.([0-9]{1,2}/[0-9]{1,2}(?:/[0-9]{1,2})?))?`,
		func(r *telex.ParsedRecord, m []string) bool {
			if r.FlightDesignator != "" {
				return true
			}
			r.FlightDesignator = m[1]
			r.LDM.FlightDay = m[2]
			r.LDM.Registration = m[3]
			r.LDM.AircraftType = m[4]
			r.LDM.Configuration = m[5]
			r.LDM.CrewComposition = m[6]
			return true
		}),
	Every("route", `^-([A-Z]{3})\b`,
		func(r *telex.ParsedRecord, m []string) {
			r.LDM.RouteAirports = append(r.LDM.RouteAirports, m[1])
			setOnce(&r.ArrivalAirport, m[1])
		}).OnLines("-"),
	First("categories", `^-[A-Z]{3}\.([0-9]+)/([0-9]+)/([0-9]+)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			a := setCount(&r.LDM.Adults, m[1])
			c := setCount(&r.LDM.Children, m[2])
			i := setCount(&r.LDM.Infants, m[3])
			return a && c && i
		}).OnLines("-"),
	First("total-weight", `\.T([0-9]+)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setCount(&r.LDM.TotalWeight, m[1])
		}).OnLines("-"),
	Every("compartment", `\.([0-9])/([0-9]+)\b`,
		func(r *telex.ParsedRecord, m []string) {
			r.LDM.Compartments = append(r.LDM.Compartments, m[1]+"/"+m[2])
		}).OnLines("-"),
	First("passengers", `\.PAX/([0-9]+(?:/[0-9]+)*)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			if r.LDM.Passengers != nil {
				return true
			}
			total := 0
			for _, part := range strings.Split(m[1], "/") {
				n, err := strconv.Atoi(part)
				if err != nil {
					return false
				}
				total += n
			}
			r.LDM.Passengers = &total
			return true
		}).OnLines("-"),
	First("baggage", `\bB/([0-9]+)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setCount(&r.LDM.BaggageWeight, m[1])
		}),
	First("freight", `\bC/([0-9]+)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setCount(&r.LDM.FreightWeight, m[1])
		}),
	First("mail", `\bM/([0-9]+)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setCount(&r.LDM.MailWeight, m[1])
		}),
	Every("special-handling", `\b(AVI|DGR|HUM|PER|RRY|WET|ICE|MAG|VAL|XPS|PES|EAT|RCM|RFL|RMD|DIP|WCH)\b`,
		func(r *telex.ParsedRecord, m []string) {
			r.LDM.SpecialHandling = append(r.LDM.SpecialHandling, m[1])
		}).OnLines("SI"),
}

// ExtractLDM parses an LDM body.
func ExtractLDM(body string) telex.ParsedRecord {
	rec := telex.NewEmptyRecord(telex.TypeLDM)
	rec.RawBody = body
	ldmRules.Extract(body, &rec)
	return rec
}
