package telex

import "strings"

// Header names that carry meaning for classification and routing.
const (
	HeaderPriority    = "PRIORITY"
	HeaderDestination = "DESTINATION"
	HeaderOrigin      = "ORIGIN"
	HeaderMsgID       = "MSGID"
	HeaderSMI         = "SMI"
	HeaderText        = "TEXT"
)

// Envelope is the header map plus the message body of one telex.
type Envelope struct {
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// Header returns the value stored under name. Names are case-preserving.
func (e Envelope) Header(name string) (string, bool) {
	v, ok := e.Headers[name]
	return v, ok
}

// ExtractEnvelope splits raw telex text into header fields and the body.
//
// A header line starts with '='; the token after '=' up to the first space is
// the field name and the rest of the line is the value. Following lines that do
// not start with '=' continue the value and are joined with a single space. The
// body is the content of the =TEXT section, up to the next '=' line. Without a
// =TEXT section the body is empty. A repeated header keeps its first value.
func ExtractEnvelope(raw string) Envelope {
	env := Envelope{Headers: make(map[string]string)}

	var (
		current string
		inText  bool
		body    []string
		value   []string
	)

	flush := func() {
		if current == "" || inText {
			return
		}
		if _, exists := env.Headers[current]; !exists {
			env.Headers[current] = strings.Join(value, " ")
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "=") {
			flush()
			name, rest, _ := strings.Cut(strings.TrimPrefix(trimmed, "="), " ")
			current = name
			value = value[:0]
			inText = name == HeaderText
			rest = strings.TrimSpace(rest)
			if rest == "" {
				continue
			}
			if inText {
				body = append(body, rest)
			} else {
				value = append(value, rest)
			}
			continue
		}

		switch {
		case inText:
			body = append(body, line)
		case current != "" && trimmed != "":
			value = append(value, trimmed)
		}
	}
	flush()

	env.Body = strings.TrimSpace(strings.Join(body, "\n"))
	return env
}
