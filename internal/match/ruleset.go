package match

import (
	"strings"

	"github.com/sells-group/lead-dedup/internal/model"
)

// Clause is one rule and the operator linking it to the next clause. The
// last clause's operator is ignored.
type Clause struct {
	Rule Rule
	Op   Op
}

// RuleSet is an ordered list of clauses combined left to right.
type RuleSet []Clause

// DefaultRules is exact on {email, phone} OR fuzzy business_name at 80.
func DefaultRules() RuleSet {
	return RuleSet{
		{Rule: Exact{Fields: []string{"email", "phone"}}, Op: OpOr},
		{Rule: Fuzzy{Field: "business_name", Threshold: DefaultThreshold}},
	}
}

// Evaluate reports whether a and b are duplicates. Every clause is
// evaluated; results are folded left to right with the operator of the
// preceding clause. An empty set evaluates DefaultRules.
func (rs RuleSet) Evaluate(a, b model.Record) bool {
	if len(rs) == 0 {
		rs = DefaultRules()
	}
	result := rs[0].Rule.Match(a, b)
	for i := 1; i < len(rs); i++ {
		v := rs[i].Rule.Match(a, b)
		if rs[i-1].Op == OpAnd {
			result = result && v
		} else {
			result = result || v
		}
	}
	return result
}

// Validate checks every clause and operator.
func (rs RuleSet) Validate() error {
	if len(rs) == 0 {
		return &model.ConfigurationError{Setting: "rules", Reason: "rule set is empty"}
	}
	for i, c := range rs {
		if c.Rule == nil {
			return &model.ConfigurationError{Setting: "rules", Reason: "nil rule"}
		}
		if err := c.Rule.validate(); err != nil {
			return err
		}
		if i < len(rs)-1 && c.Op != OpAnd && c.Op != OpOr {
			return &model.ConfigurationError{Setting: "operator", Reason: "unknown operator " + string(c.Op)}
		}
	}
	return nil
}

// PrepassFields returns the fields of an exact clause whose truth alone
// makes the whole set true: it is first or preceded by OR, and every
// clause after it is joined by OR. Records sharing a key on these fields
// are duplicates without any fuzzy comparison. Nil means no such clause.
func (rs RuleSet) PrepassFields() []string {
	if len(rs) == 0 {
		rs = DefaultRules()
	}
	for i, c := range rs {
		ex, ok := c.Rule.(Exact)
		if !ok {
			continue
		}
		if i > 0 && rs[i-1].Op != OpOr {
			continue
		}
		if orTail(rs, i) {
			return append([]string(nil), ex.Fields...)
		}
	}
	return nil
}

// orTail reports whether clauses i..end-1 are all joined by OR.
func orTail(rs RuleSet, i int) bool {
	for j := i; j < len(rs)-1; j++ {
		if rs[j].Op != OpOr {
			return false
		}
	}
	return true
}

// String renders the set as "exact(email,phone) OR fuzzy(business_name>=80)".
func (rs RuleSet) String() string {
	var b strings.Builder
	for i, c := range rs {
		if i > 0 {
			b.WriteString(" " + string(rs[i-1].Op) + " ")
		}
		b.WriteString(c.Rule.String())
	}
	return b.String()
}
