package extractor

import (
	"strings"

	"github.com/illmade-knight/go-telex/pkg/telex"
)

// mvtRules is the aircraft movement grammar:
//
//	MVT
//	AT201/12.CNRGT.CMN
//	AD1205/1215 EA1430 CDG
//	DL93/0030 LATE INBOUND
//	SI CREW CHANGE
var mvtRules = RuleSet[telex.ParsedRecord]{
	First("flight", `^(`+airlineCode+flightNumber+`[A-Z]?)/([0-9]{2})\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			if r.FlightDesignator != "" {
				return true
			}
			r.FlightDesignator = m[1]
			r.MVT.FlightDay = m[2]
			return true
		}),
	First("registration", `^`+airlineCode+flightNumber+`[A-Z]?/[0-9]{2}\.(`+registration+`)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.MVT.Registration, m[1])
		}),
	First("station", `^`+airlineCode+flightNumber+`[A-Z]?/[0-9]{2}\.`+registration+`\.([A-Z]{3})\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			fillSlot(m[1], &r.DepartureAirport, &r.ArrivalAirport)
			return true
		}),
	First("departed", `^AD\s*([0-9]{4,6})(?:/([0-9]{4,6}))?(?:\s|$)`,
		func(r *telex.ParsedRecord, m []string) bool {
			setMovement(r.MVT, telex.MovementDeparture)
			r.MVT.OffBlock = m[1]
			r.MVT.Airborne = m[2]
			return true
		}),
	First("arrived", `^AA\s*([0-9]{4,6})(?:/([0-9]{4,6}))?(?:\s|$)`,
		func(r *telex.ParsedRecord, m []string) bool {
			setMovement(r.MVT, telex.MovementArrival)
			r.MVT.Touchdown = m[1]
			r.MVT.OnBlock = m[2]
			return true
		}),
	First("estimated-departure", `^ED\s*([0-9]{4,6})(?:\s|$)`,
		func(r *telex.ParsedRecord, m []string) bool {
			setMovement(r.MVT, telex.MovementDelay)
			return true
		}),
	First("estimated-arrival", `(?:^|\s)EA\s*([0-9]{4,6})(?:\s+([A-Z]{3}))?(?:\s|$)`,
		func(r *telex.ParsedRecord, m []string) bool {
			r.MVT.EstimatedArrival = m[1]
			if m[2] != "" {
				fillSlot(m[2], &r.DepartureAirport, &r.ArrivalAirport)
			}
			return true
		}),
	First("diverted", `^DIV(?:\s+([A-Z]{3}))?(?:\s|$)`,
		func(r *telex.ParsedRecord, m []string) bool {
			setMovement(r.MVT, telex.MovementDiversion)
			if m[1] != "" {
				fillSlot(m[1], &r.DepartureAirport, &r.ArrivalAirport)
			}
			return true
		}),
	First("cancelled", `^(?:CNL|CAN)\b`,
		func(r *telex.ParsedRecord, m []string) bool {
			setMovement(r.MVT, telex.MovementCancel)
			return true
		}),
	Every("delay-codes", `^DLA?\s*([0-9]{2}[A-Z]?(?:/[0-9]{2,4}[A-Z]?)*)(?:\s|$)`,
		func(r *telex.ParsedRecord, m []string) {
			for _, code := range strings.Split(m[1], "/") {
				// Four digit groups are durations, not reason codes.
				if code != "" && len(code) <= 3 {
					r.MVT.DelayCodes = append(r.MVT.DelayCodes, code)
				}
			}
			if len(r.MVT.DelayCodes) > 0 {
				setMovement(r.MVT, telex.MovementDelay)
			}
		}),
	First("delay-reason", `^DLA?\s*[0-9/A-Z]*[0-9]\s+(.+)$`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.MVT.DelayReason, strings.TrimSpace(m[1]))
		}),
	Every("route", `^RTE?\s+(.+)$`,
		func(r *telex.ParsedRecord, m []string) {
			for _, p := range strings.FieldsFunc(m[1], func(c rune) bool { return c == ' ' || c == '-' || c == '/' }) {
				r.MVT.RoutePoints = append(r.MVT.RoutePoints, p)
			}
		}),
	First("supplementary", `^SI\s+(.+)$`,
		func(r *telex.ParsedRecord, m []string) bool {
			return setOnce(&r.MVT.SupplementaryInfo, strings.TrimSpace(m[1]))
		}),
}

// setMovement records the movement type unless an earlier line already did.
func setMovement(f *telex.MVTFields, t telex.MovementType) {
	if f.MovementType == "" {
		f.MovementType = t
	}
}

// ExtractMVT parses an MVT body.
func ExtractMVT(body string) telex.ParsedRecord {
	rec := telex.NewEmptyRecord(telex.TypeMVT)
	rec.RawBody = body
	mvtRules.Extract(body, &rec)
	return rec
}
