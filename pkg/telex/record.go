// Package telex holds the telegram data model together with the envelope
// extractor and the type classifier.
package telex

import "strings"

// MessageType identifies the operational message family of a telex.
type MessageType string

const (
	TypeASM     MessageType = "ASM"
	TypeSSM     MessageType = "SSM"
	TypeMVT     MessageType = "MVT"
	TypeLDM     MessageType = "LDM"
	TypeUnknown MessageType = "UNKNOWN"
)

// ParseMessageType maps a type name to a MessageType. Anything unrecognised is TypeUnknown.
func ParseMessageType(s string) MessageType {
	switch MessageType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeASM:
		return TypeASM
	case TypeSSM:
		return TypeSSM
	case TypeMVT:
		return TypeMVT
	case TypeLDM:
		return TypeLDM
	default:
		return TypeUnknown
	}
}

// ParsedRecord is the structured form of one telex. Exactly one of the variant
// pointers is set, matching Type; an UNKNOWN record carries none of them.
type ParsedRecord struct {
	Type             MessageType `json:"type"`
	FlightDesignator string      `json:"flightDesignator,omitempty"`
	DepartureAirport string      `json:"departureAirport,omitempty"`
	ArrivalAirport   string      `json:"arrivalAirport,omitempty"`
	RawBody          string      `json:"rawBody,omitempty"`

	Enrichment Enrichment `json:"enrichment"`

	ASM *ASMFields `json:"asm,omitempty"`
	SSM *SSMFields `json:"ssm,omitempty"`
	MVT *MVTFields `json:"mvt,omitempty"`
	LDM *LDMFields `json:"ldm,omitempty"`
}

// NewEmptyRecord returns a record of the given type with an empty variant payload.
// TypeUnknown (and anything else) yields a record with only the type tag set.
func NewEmptyRecord(t MessageType) ParsedRecord {
	rec := ParsedRecord{Type: t}
	switch t {
	case TypeASM:
		rec.ASM = &ASMFields{}
	case TypeSSM:
		rec.SSM = &SSMFields{}
	case TypeMVT:
		rec.MVT = &MVTFields{}
	case TypeLDM:
		rec.LDM = &LDMFields{}
	default:
		rec.Type = TypeUnknown
	}
	return rec
}

// AirlineCode returns the two character airline prefix of the flight designator.
func (r ParsedRecord) AirlineCode() (string, bool) {
	if len(r.FlightDesignator) < 2 {
		return "", false
	}
	return r.FlightDesignator[:2], true
}

// AircraftType returns the aircraft type code carried by the variant, if any.
func (r ParsedRecord) AircraftType() string {
	switch {
	case r.ASM != nil:
		return r.ASM.AircraftType
	case r.SSM != nil:
		return r.SSM.AircraftType
	case r.LDM != nil:
		return r.LDM.AircraftType
	}
	return ""
}

// Enrichment holds values derived from the reference tables. None of them is
// required for a record to be valid.
type Enrichment struct {
	AirlineName          string `json:"airlineName,omitempty"`
	AirlineCountry       string `json:"airlineCountry,omitempty"`
	DepartureAirportName string `json:"departureAirportName,omitempty"`
	DepartureTimezone    string `json:"departureTimezone,omitempty"`
	ArrivalAirportName   string `json:"arrivalAirportName,omitempty"`
	ArrivalTimezone      string `json:"arrivalTimezone,omitempty"`
	AircraftName         string `json:"aircraftName,omitempty"`
}

// ASMFields are the ad-hoc schedule message fields.
type ASMFields struct {
	Action            string   `json:"action,omitempty"`
	FlightNumber      string   `json:"flightNumber,omitempty"`
	FlightSuffix      string   `json:"flightSuffix,omitempty"`
	FlightDate        string   `json:"flightDate,omitempty"`
	AircraftType      string   `json:"aircraftType,omitempty"`
	EquipmentVersion  string   `json:"equipmentVersion,omitempty"`
	DEIs              []string `json:"deis,omitempty"`
	DepartureTime     string   `json:"departureTime,omitempty"`
	ArrivalTime       string   `json:"arrivalTime,omitempty"`
	DaysOfOperation   string   `json:"daysOfOperation,omitempty"`
	PeriodOfOperation string   `json:"periodOfOperation,omitempty"`
}

// SSMFields are the standard schedule message fields.
type SSMFields struct {
	Action              string   `json:"action,omitempty"`
	AircraftType        string   `json:"aircraftType,omitempty"`
	EquipmentVersion    string   `json:"equipmentVersion,omitempty"`
	EffectiveDate       string   `json:"effectiveDate,omitempty"`
	DiscontinuationDate string   `json:"discontinuationDate,omitempty"`
	DaysOfOperation     string   `json:"daysOfOperation,omitempty"`
	DepartureTime       string   `json:"departureTime,omitempty"`
	ArrivalTime         string   `json:"arrivalTime,omitempty"`
	DEIs                []string `json:"deis,omitempty"`
}

// MovementType is the kind of event an MVT message reports.
type MovementType string

const (
	MovementDeparture MovementType = "DEP"
	MovementArrival   MovementType = "ARR"
	MovementDiversion MovementType = "DIV"
	MovementCancel    MovementType = "CAN"
	MovementDelay     MovementType = "DLY"
)

// MVTFields are the aircraft movement message fields. Times are kept as the
// 4 or 6 digit tokens found in the text.
type MVTFields struct {
	MovementType      MovementType `json:"movementType,omitempty"`
	FlightDay         string       `json:"flightDay,omitempty"`
	Registration      string       `json:"registration,omitempty"`
	OffBlock          string       `json:"offBlock,omitempty"`
	Airborne          string       `json:"airborne,omitempty"`
	Touchdown         string       `json:"touchdown,omitempty"`
	OnBlock           string       `json:"onBlock,omitempty"`
	EstimatedArrival  string       `json:"estimatedArrival,omitempty"`
	DelayCodes        []string     `json:"delayCodes,omitempty"`
	DelayReason       string       `json:"delayReason,omitempty"`
	RoutePoints       []string     `json:"routePoints,omitempty"`
	SupplementaryInfo string       `json:"supplementaryInfo,omitempty"`
}

// LDMFields are the load message fields. Numeric values are nil when absent
// or unparsable; weights are kilograms.
type LDMFields struct {
	FlightDay       string   `json:"flightDay,omitempty"`
	Registration    string   `json:"registration,omitempty"`
	AircraftType    string   `json:"aircraftType,omitempty"`
	Configuration   string   `json:"configuration,omitempty"`
	CrewComposition string   `json:"crewComposition,omitempty"`
	RouteAirports   []string `json:"routeAirports,omitempty"`
	Passengers      *int     `json:"passengers,omitempty"`
	Adults          *int     `json:"adults,omitempty"`
	Children        *int     `json:"children,omitempty"`
	Infants         *int     `json:"infants,omitempty"`
	FreightWeight   *int     `json:"freightWeight,omitempty"`
	BaggageWeight   *int     `json:"baggageWeight,omitempty"`
	MailWeight      *int     `json:"mailWeight,omitempty"`
	TotalWeight     *int     `json:"totalWeight,omitempty"`
	Compartments    []string `json:"compartments,omitempty"`
	SpecialHandling []string `json:"specialHandling,omitempty"`
}
