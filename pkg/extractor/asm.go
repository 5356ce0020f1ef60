package extractor

import "github.com/illmade-knight/go-telex/pkg/telex"

// asmRules is the ad-hoc schedule change grammar.
var asmRules = RuleSet[telex.ParsedRecord]{
	First("action", `\b(NEW|CNL|RIN|RPL|ADM|CON|EQT|FLT|RRT|TIM|CHG|COR)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.ASM.Action, m[1])
		}),
	First("flight", `\b(`+airlineCode+`)(`+flightNumber+`)([A-Z]?)\s*/\s*(`+dateToken+`)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			if r.FlightDesignator != "" {
				return true
			}
			r.FlightDesignator = m[1] + m[2] + m[3]
			r.ASM.FlightNumber = m[2]
			r.ASM.FlightSuffix = m[3]
			r.ASM.FlightDate = m[4]
			return true
		}),
	First("equipment", `^[A-Z]\s+([A-Z0-9]{3,4})\s+\.?((?:[A-Z][0-9]{1,3})+)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			if r.ASM.AircraftType != "" {
				return true
			}
			r.ASM.AircraftType = m[1]
			r.ASM.EquipmentVersion = m[2]
			return true
		}),
	Every("dei", deiToken,
		func(r *telex.ParsedRecord, m []string) {
			r.ASM.DEIs = append(r.ASM.DEIs, m[1])
		}),
	Line("airport-time", airportTimePair,
		func(r *telex.ParsedRecord, ms [][]string) bool {
			return airportTimePairs(ms, &r.DepartureAirport, &r.ASM.DepartureTime, &r.ArrivalAirport, &r.ASM.ArrivalTime)
		}),
	First("period", `\b(`+dateToken+`)\s+(`+dateToken+`)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.ASM.PeriodOfOperation, m[1]+" "+m[2])
		}),
	First("days", `\b`+dateToken+`\s+([1-7]{1,7})\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.ASM.DaysOfOperation, m[1])
		}),
}

// ExtractASM parses an ASM body.
func ExtractASM(body string) telex.ParsedRecord {
	rec := telex.NewEmptyRecord(telex.TypeASM)
	rec.RawBody = body
	asmRules.Extract(body, &rec)
	return rec
}
