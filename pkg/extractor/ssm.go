package extractor

import "github.com/illmade-knight/go-telex/pkg/telex"

// ssmRules is the standard schedule message grammar. The flight designator
// stands alone at the start of its line, unlike ASM where it carries a date.
var ssmRules = RuleSet[telex.ParsedRecord]{
	First("action", `^(NEW|CNL|RPL|SKD|ADM|CON|EQT|FLT|NAC|REV|RSD|TIM|ACK)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.SSM.Action, m[1])
		}),
	First("flight", `^(`+airlineCode+flightNumber+`[A-Z]?)(?:\s|/|$)`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.FlightDesignator, m[1])
		}),
	First("period", `^(`+dateToken+`)\s+(`+dateToken+`)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			if r.SSM.EffectiveDate != "" {
				return true
			}
			r.SSM.EffectiveDate = m[1]
			r.SSM.DiscontinuationDate = m[2]
			return true
		}),
	First("days", `^`+dateToken+`\s+`+dateToken+`\s+([1-7]{1,7})(?:/W[0-9])?\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.SSM.DaysOfOperation, m[1])
		}),
	First("equipment", `^[A-Z]\s+([A-Z0-9]{3})\s+\.?((?:[A-Z][0-9]{1,3})+)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			if r.SSM.AircraftType != "" {
				return true
			}
			r.SSM.AircraftType = m[1]
			r.SSM.EquipmentVersion = m[2]
			return true
		}),
	Every("dei", deiToken,
		func(r *telex.ParsedRecord, m []string) {
			r.SSM.DEIs = append(r.SSM.DEIs, m[1])
		}),
	Line("airport-time", airportTimePair,
		func(r *telex.ParsedRecord, ms [][]string) bool {
			return airportTimePairs(ms, &r.DepartureAirport, &r.SSM.DepartureTime, &r.ArrivalAirport, &r.SSM.ArrivalTime)
		}),
}

// ExtractSSM parses an SSM body.
func ExtractSSM(body string) telex.ParsedRecord {
	rec := telex.NewEmptyRecord(telex.TypeSSM)
	rec.RawBody = body
	ssmRules.Extract(body, &rec)
	return rec
}
