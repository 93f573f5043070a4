// Package quality scores lead records for completeness and validity and
// flags values that look like placeholders or test data.
package quality

import (
	"math"
	"sort"

	"github.com/sells-group/lead-dedup/internal/contact"
	"github.com/sells-group/lead-dedup/internal/model"
)

// Field names the scorer and detector know about.
const (
	FieldBusinessName = "business_name"
	FieldPhone        = "phone"
	FieldEmail        = "email"
	FieldLocation     = "location"
	FieldAddress      = "address"
	FieldCountryCode  = "country_code"
)

// invalidPenalty scales the weight of a phone or email that is present but
// fails validation.
const invalidPenalty = 0.5

// Weights maps a field name to its relative weight. Weights need not sum
// to 100; the score is normalized by their total.
type Weights map[string]float64

// DefaultWeights gives each scored field an equal share of 100. The
// location slot is satisfied by either a location or an address field.
func DefaultWeights() Weights {
	return Weights{
		FieldBusinessName: 25,
		FieldPhone:        25,
		FieldEmail:        25,
		FieldLocation:     25,
	}
}

// Validity carries the validator verdicts for a record's contact fields.
type Validity struct {
	EmailValid bool
	PhoneValid bool
}

// Score computes the 0-100 quality score of rec. Empty weights fall back to
// DefaultWeights. Phone and email contribute half their weight when present
// but invalid, so a bad value scores above a missing one.
func Score(rec model.Record, weights Weights, v Validity) int {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	var total, earned float64
	for _, field := range sortedFields(weights) {
		w := weights[field]
		if w <= 0 {
			continue
		}
		total += w
		if !present(rec, field) {
			continue
		}
		switch {
		case field == FieldEmail && !v.EmailValid:
			w *= invalidPenalty
		case field == FieldPhone && !v.PhoneValid:
			w *= invalidPenalty
		}
		earned += w
	}
	if total == 0 {
		return 0
	}

	score := int(math.Round(earned / total * 100))
	return min(max(score, 0), 100)
}

// CalculateDataQualityScore validates rec's email and phone itself and
// returns its quality score. The phone is checked against the record's
// country_code field when one is set.
func CalculateDataQualityScore(rec model.Record, weights Weights) int {
	return Score(rec, weights, Validate(rec))
}

// Validate runs the field validators over rec's email and phone.
func Validate(rec model.Record) Validity {
	return Validity{
		EmailValid: contact.ValidateEmail(rec.Text(FieldEmail)),
		PhoneValid: contact.ValidatePhoneNumber(rec.Text(FieldPhone), rec.Text(FieldCountryCode)),
	}
}

func present(rec model.Record, field string) bool {
	if field == FieldLocation {
		return rec.Has(FieldLocation) || rec.Has(FieldAddress)
	}
	return rec.Has(field)
}

func sortedFields(w Weights) []string {
	out := make([]string, 0, len(w))
	for f := range w {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
