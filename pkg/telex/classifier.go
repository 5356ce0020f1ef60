package telex

import "strings"

// KeywordOrder is the order in which type keywords are tried. When text
// contains more than one keyword the earliest entry in this list wins.
var KeywordOrder = []MessageType{TypeASM, TypeSSM, TypeMVT, TypeLDM}

// Classify determines the message type of an envelope. A non-empty SMI header
// is inspected first; when it holds no known keyword the first non-blank body
// line is inspected instead. No match yields TypeUnknown.
func Classify(env Envelope) MessageType {
	if smi, ok := env.Header(HeaderSMI); ok && strings.TrimSpace(smi) != "" {
		if t := matchKeyword(smi); t != TypeUnknown {
			return t
		}
	}
	return matchKeyword(firstNonBlankLine(env.Body))
}

// matchKeyword applies a case-insensitive substring match against KeywordOrder.
func matchKeyword(text string) MessageType {
	upper := strings.ToUpper(text)
	for _, t := range KeywordOrder {
		if strings.Contains(upper, string(t)) {
			return t
		}
	}
	return TypeUnknown
}

func firstNonBlankLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}
