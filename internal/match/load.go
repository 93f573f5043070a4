package match

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-dedup/internal/model"
)

// RuleConfig is the loosely typed form of a rule as it appears in config
// files. FromConfig turns it into a typed Rule.
type RuleConfig struct {
	Type            string   `yaml:"type" mapstructure:"type" json:"type"`
	Fields          []string `yaml:"fields" mapstructure:"fields" json:"fields,omitempty"`
	Field           string   `yaml:"field" mapstructure:"field" json:"field,omitempty"`
	Threshold       *float64 `yaml:"threshold" mapstructure:"threshold" json:"threshold,omitempty"`
	AdditionalExact []string `yaml:"additional_exact" mapstructure:"additional_exact" json:"additional_exact,omitempty"`
	Operator        string   `yaml:"operator" mapstructure:"operator" json:"operator,omitempty"`
}

type rulesFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// LoadRulesFile reads a YAML file with a top-level "rules" list.
func LoadRulesFile(path string) ([]RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "match: read rules file %s", path)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "match: parse rules file %s", path)
	}
	if len(f.Rules) == 0 {
		return nil, &model.ConfigurationError{Setting: "rules_file", Reason: path + " defines no rules"}
	}
	return f.Rules, nil
}

// FromConfig converts rule configs to a validated RuleSet. Fuzzy rules
// without a threshold use defaultThreshold.
func FromConfig(cfgs []RuleConfig, defaultThreshold float64) (RuleSet, error) {
	rs := make(RuleSet, 0, len(cfgs))
	for i, c := range cfgs {
		op, err := ParseOp(c.Operator)
		if err != nil {
			return nil, err
		}

		var rule Rule
		switch strings.ToLower(strings.TrimSpace(c.Type)) {
		case "exact":
			fields := c.Fields
			if len(fields) == 0 && c.Field != "" {
				fields = []string{c.Field}
			}
			rule = Exact{Fields: fields}
		case "fuzzy":
			field := c.Field
			if field == "" && len(c.Fields) == 1 {
				field = c.Fields[0]
			}
			threshold := defaultThreshold
			if c.Threshold != nil {
				threshold = *c.Threshold
			}
			rule = Fuzzy{Field: field, Threshold: threshold, AdditionalExact: c.AdditionalExact}
		default:
			return nil, &model.ConfigurationError{
				Setting: fmt.Sprintf("rules[%d].type", i),
				Reason:  fmt.Sprintf("unknown rule type %q", c.Type),
			}
		}
		rs = append(rs, Clause{Rule: rule, Op: op})
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Options are the matching settings exposed to callers.
type Options struct {
	Exact       bool
	Fuzzy       bool
	Threshold   float64
	MatchFields []string
	Rules       []RuleConfig
}

// Build assembles the rule set for opts. Explicit rules win; otherwise
// MatchFields yields exact on all of them OR fuzzy on the first, and with
// neither the default rules apply at opts.Threshold. The Exact and Fuzzy
// toggles then drop clauses of the disabled kind.
func Build(opts Options) (RuleSet, error) {
	if !opts.Exact && !opts.Fuzzy {
		return nil, &model.ConfigurationError{Setting: "dedup", Reason: "exact and fuzzy matching are both disabled"}
	}
	if opts.Threshold < 0 || opts.Threshold > 100 {
		return nil, &model.ConfigurationError{Setting: "threshold", Reason: fmt.Sprintf("%v outside 0-100", opts.Threshold)}
	}

	var rs RuleSet
	switch {
	case len(opts.Rules) > 0:
		var err error
		if rs, err = FromConfig(opts.Rules, opts.Threshold); err != nil {
			return nil, err
		}
	case len(opts.MatchFields) > 0:
		rs = RuleSet{
			{Rule: Exact{Fields: opts.MatchFields}, Op: OpOr},
			{Rule: Fuzzy{Field: opts.MatchFields[0], Threshold: opts.Threshold}},
		}
	default:
		rs = DefaultRules()
		rs[1].Rule = Fuzzy{Field: "business_name", Threshold: opts.Threshold}
	}

	out := make(RuleSet, 0, len(rs))
	for _, c := range rs {
		switch c.Rule.(type) {
		case Exact:
			if !opts.Exact {
				continue
			}
		case Fuzzy:
			if !opts.Fuzzy {
				continue
			}
		}
		out = append(out, c)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
