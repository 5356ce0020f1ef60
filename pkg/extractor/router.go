package extractor

import (
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/telex"
)

// Extractor turns the body of one message family into a record.
type Extractor interface {
	Supports(t telex.MessageType) bool
	Extract(body string) telex.ParsedRecord
}

// Func adapts a plain extraction function to the Extractor interface.
type Func struct {
	Type telex.MessageType
	Fn   func(body string) telex.ParsedRecord
}

func (f Func) Supports(t telex.MessageType) bool      { return t == f.Type }
func (f Func) Extract(body string) telex.ParsedRecord { return f.Fn(body) }

// Defaults returns the extractors for every supported message family.
func Defaults() []Extractor {
	return []Extractor{
		Func{Type: telex.TypeASM, Fn: ExtractASM},
		Func{Type: telex.TypeSSM, Fn: ExtractSSM},
		Func{Type: telex.TypeMVT, Fn: ExtractMVT},
		Func{Type: telex.TypeLDM, Fn: ExtractLDM},
	}
}

// RouteContext carries envelope values alongside the body. The router only logs them.
type RouteContext struct {
	Priority    string
	Origin      string
	Destination string
	MessageID   string
}

// ContextFromEnvelope picks the routing context out of the envelope headers.
func ContextFromEnvelope(env telex.Envelope) RouteContext {
	var rc RouteContext
	rc.Priority, _ = env.Header(telex.HeaderPriority)
	rc.Origin, _ = env.Header(telex.HeaderOrigin)
	rc.Destination, _ = env.Header(telex.HeaderDestination)
	rc.MessageID, _ = env.Header(telex.HeaderMsgID)
	return rc
}

// Router dispatches a classified body to the first registered extractor that supports its type.
type Router struct {
	items  []Extractor
	logger zerolog.Logger
}

// NewRouter constructs a router. With no extractors it uses Defaults.
func NewRouter(logger zerolog.Logger, items ...Extractor) *Router {
	if len(items) == 0 {
		items = Defaults()
	}
	return &Router{
		items:  items,
		logger: logger.With().Str("component", "Router").Logger(),
	}
}

// Route extracts body as a message of type t. An UNKNOWN or unregistered type
// yields telex.NewEmptyRecord(t) and ok is false.
func (r *Router) Route(body string, t telex.MessageType, rc RouteContext) (telex.ParsedRecord, bool) {
	if t != telex.TypeUnknown {
		for _, ex := range r.items {
			if ex.Supports(t) {
				return ex.Extract(body), true
			}
		}
	}
	r.logger.Debug().
		Str("message_type", string(t)).
		Str("msg_id", rc.MessageID).
		Str("origin", rc.Origin).
		Msg("No extractor for message type.")
	return telex.NewEmptyRecord(t), false
}
