// Package extractor turns a telex body into a structured record using ordered
// tables of pattern rules, one table per message type.
package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// Mode controls how a rule consumes the matches found on a line.
type Mode int

const (
	// FirstMatch applies the first match on a line and retires the rule as soon
	// as it reports that it filled its field.
	FirstMatch Mode = iota
	// EveryMatch applies each match on every line, in body order. It never retires.
	EveryMatch
	// LineMatches hands every match of a single line to the rule at once and
	// retires the rule once it reports that it filled its fields.
	LineMatches
)

// Rule is one entry of an extraction table.
type Rule[T any] struct {
	Name    string
	Pattern *regexp.Regexp
	Mode    Mode
	// LinePrefix restricts the rule to lines starting with it. Empty means every line.
	LinePrefix string
	apply      func(rec *T, matches [][]string) bool
}

// OnLines returns a copy of the rule restricted to lines starting with prefix.
func (r Rule[T]) OnLines(prefix string) Rule[T] {
	r.LinePrefix = prefix
	return r
}

// First builds a FirstMatch rule. set returns false when the match could not be
// used (for example an unparsable number) so that a later line may still fill the field.
func First[T any](name, pattern string, set func(rec *T, m []string) bool) Rule[T] {
	return Rule[T]{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Mode:    FirstMatch,
		apply: func(rec *T, matches [][]string) bool {
			return set(rec, matches[0])
		},
	}
}

// Every builds an EveryMatch rule for list fields.
func Every[T any](name, pattern string, add func(rec *T, m []string)) Rule[T] {
	return Rule[T]{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Mode:    EveryMatch,
		apply: func(rec *T, matches [][]string) bool {
			add(rec, matches[0])
			return false
		},
	}
}

// Line builds a LineMatches rule.
func Line[T any](name, pattern string, set func(rec *T, ms [][]string) bool) Rule[T] {
	return Rule[T]{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Mode:    LineMatches,
		apply:   set,
	}
}

// RuleSet is an ordered extraction table.
type RuleSet[T any] []Rule[T]

// Extract runs the table over body, line by line from the top. Every rule is
// offered every non-blank line, so one line may feed several fields.
func (rs RuleSet[T]) Extract(body string, rec *T) {
	retired := make([]bool, len(rs))
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		for i, rule := range rs {
			if retired[i] || !strings.HasPrefix(line, rule.LinePrefix) {
				continue
			}
			switch rule.Mode {
			case EveryMatch:
				for _, m := range rule.Pattern.FindAllStringSubmatch(line, -1) {
					rule.apply(rec, [][]string{m})
				}
			case LineMatches:
				ms := rule.Pattern.FindAllStringSubmatch(line, -1)
				if len(ms) > 0 && rule.apply(rec, ms) {
					retired[i] = true
				}
			default:
				m := rule.Pattern.FindStringSubmatch(line)
				if m != nil && rule.apply(rec, [][]string{m}) {
					retired[i] = true
				}
			}
		}
	}
}

// setOnce stores v in dst if dst is still empty. It reports whether dst is filled.
func setOnce(dst *string, v string) bool {
	if v == "" {
		return false
	}
	if *dst == "" {
		*dst = v
	}
	return true
}

// fillSlot stores v in the first empty slot. It reports whether a slot took the value.
func fillSlot(v string, slots ...*string) bool {
	for _, s := range slots {
		if *s == "" {
			*s = v
			return true
		}
	}
	return false
}

// setCount parses s into dst unless dst is already set. An unparsable value
// leaves dst unset and reports false.
func setCount(dst **int, s string) bool {
	if *dst != nil {
		return true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return false
	}
	*dst = &n
	return true
}

// airportTimePairs assigns the first (airport, time) match of a line to departure
// and the second to arrival. Lines with fewer than two matches are not used and
// matches past the second are discarded.
func airportTimePairs(ms [][]string, depAirport, depTime, arrAirport, arrTime *string) bool {
	if len(ms) < 2 {
		return false
	}
	*depAirport, *depTime = ms[0][1], ms[0][2]
	*arrAirport, *arrTime = ms[1][1], ms[1][2]
	return true
}

// Shared grammar fragments.
const (
	airlineCode     = `(?:[A-Z]{2}|[A-Z][0-9]|[0-9][A-Z])`
	flightNumber    = `[0-9]{1,4}`
	dateToken       = `[0-9]{1,2}[A-Z]{3}(?:[0-9]{2})?`
	airportTimePair = `\b([A-Z]{3})([0-9]{4,6})\b`
	deiToken        = `\b([0-9]{1,3}/[A-Z0-9]{1,8})\b`
	registration    = `[A-Z0-9-]{2,8}`
)
