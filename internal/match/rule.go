// Package match decides whether two lead records describe the same
// business, using an ordered list of exact and fuzzy rules.
package match

import (
	"fmt"
	"strings"

	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/similarity"
)

// DefaultThreshold is the fuzzy threshold of the default rule set.
const DefaultThreshold = 80

// Op combines a clause with the one that follows it.
type Op string

const (
	OpAnd Op = "AND"
	OpOr  Op = "OR"
)

// ParseOp parses "and"/"or" case-insensitively. Empty means OR.
func ParseOp(s string) (Op, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OR":
		return OpOr, nil
	case "AND":
		return OpAnd, nil
	default:
		return "", &model.ConfigurationError{Setting: "operator", Reason: fmt.Sprintf("unknown operator %q", s)}
	}
}

// Rule is a single match criterion. The set of rules is closed: Exact and
// Fuzzy are the only implementations.
type Rule interface {
	// Match reports whether a and b satisfy the rule.
	Match(a, b model.Record) bool
	validate() error
	String() string
}

// Exact matches when every field is present on both records and equal
// after trimming and case folding.
type Exact struct {
	Fields []string
}

// Match implements Rule.
func (e Exact) Match(a, b model.Record) bool {
	return fieldsEqual(a, b, e.Fields)
}

func (e Exact) validate() error {
	if len(e.Fields) == 0 {
		return &model.ConfigurationError{Setting: "rules", Reason: "exact rule has no fields"}
	}
	return validFieldNames(e.Fields)
}

func (e Exact) String() string {
	return "exact(" + strings.Join(e.Fields, ",") + ")"
}

// Fuzzy matches when the similarity of Field reaches Threshold and every
// AdditionalExact field matches exactly.
type Fuzzy struct {
	Field           string
	Threshold       float64
	AdditionalExact []string
}

// Match implements Rule.
func (f Fuzzy) Match(a, b model.Record) bool {
	if !a.Has(f.Field) || !b.Has(f.Field) {
		return false
	}
	if similarity.Ratio(a.Text(f.Field), b.Text(f.Field)) < f.Threshold {
		return false
	}
	return len(f.AdditionalExact) == 0 || fieldsEqual(a, b, f.AdditionalExact)
}

func (f Fuzzy) validate() error {
	if strings.TrimSpace(f.Field) == "" {
		return &model.ConfigurationError{Setting: "rules", Reason: "fuzzy rule has no field"}
	}
	if f.Threshold < 0 || f.Threshold > 100 {
		return &model.ConfigurationError{Setting: "threshold", Reason: fmt.Sprintf("%v outside 0-100", f.Threshold)}
	}
	return validFieldNames(f.AdditionalExact)
}

func (f Fuzzy) String() string {
	s := fmt.Sprintf("fuzzy(%s>=%g", f.Field, f.Threshold)
	if len(f.AdditionalExact) > 0 {
		s += " +exact(" + strings.Join(f.AdditionalExact, ",") + ")"
	}
	return s + ")"
}

// Key returns the normalized exact-match key of rec over fields, or false
// when any field is missing or empty.
func Key(rec model.Record, fields []string) (string, bool) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		if !rec.Has(f) {
			return "", false
		}
		parts[i] = similarity.Normalize(rec.Text(f))
	}
	return strings.Join(parts, "\x1f"), true
}

func fieldsEqual(a, b model.Record, fields []string) bool {
	for _, f := range fields {
		if !a.Has(f) || !b.Has(f) {
			return false
		}
		if similarity.Normalize(a.Text(f)) != similarity.Normalize(b.Text(f)) {
			return false
		}
	}
	return true
}

func validFieldNames(fields []string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return &model.ConfigurationError{Setting: "rules", Reason: "empty field name"}
		}
	}
	return nil
}
