package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/lead-dedup/internal/model"
)

// AlertRate is the missing or invalid share above which a field is
// reported as a problem.
const AlertRate = 0.10

// Observation is one validated record as seen by the dataset report.
type Observation struct {
	Record     model.Record
	EmailValid bool
	PhoneValid bool
	Score      int
	Flagged    bool
}

// FieldReport summarizes one field across the dataset.
type FieldReport struct {
	Missing     int     `json:"missing"`
	MissingRate float64 `json:"missing_rate"`
	Invalid     int     `json:"invalid"`
	InvalidRate float64 `json:"invalid_rate"`
}

// Report is a dataset-level quality summary.
type Report struct {
	Total           int                    `json:"total"`
	AverageScore    float64                `json:"average_score"`
	SuspiciousCount int                    `json:"suspicious_count"`
	Fields          map[string]FieldReport `json:"fields"`
	Alerts          []string               `json:"alerts,omitempty"`
}

var reportFields = []string{FieldBusinessName, FieldEmail, FieldPhone, FieldLocation}

// BuildReport computes missing and invalid rates for the scored fields and
// raises an alert for every rate above AlertRate. Invalid counts only apply
// to email and phone, and are taken over all records.
func BuildReport(obs []Observation) Report {
	rep := Report{Total: len(obs), Fields: make(map[string]FieldReport, len(reportFields))}
	if len(obs) == 0 {
		return rep
	}

	var scoreSum int
	for _, o := range obs {
		scoreSum += o.Score
		if o.Flagged {
			rep.SuspiciousCount++
		}
	}
	rep.AverageScore = round2(float64(scoreSum) / float64(len(obs)))

	for _, field := range reportFields {
		var fr FieldReport
		for _, o := range obs {
			if !present(o.Record, field) {
				fr.Missing++
				continue
			}
			if (field == FieldEmail && !o.EmailValid) || (field == FieldPhone && !o.PhoneValid) {
				fr.Invalid++
			}
		}
		fr.MissingRate = round2(float64(fr.Missing) / float64(len(obs)))
		fr.InvalidRate = round2(float64(fr.Invalid) / float64(len(obs)))
		rep.Fields[field] = fr

		if fr.MissingRate > AlertRate {
			rep.Alerts = append(rep.Alerts, fmt.Sprintf("%s missing in %.0f%% of records", field, fr.MissingRate*100))
		}
		if fr.InvalidRate > AlertRate {
			rep.Alerts = append(rep.Alerts, fmt.Sprintf("%s invalid in %.0f%% of records", field, fr.InvalidRate*100))
		}
	}
	return rep
}

// Format renders the report as markdown.
func (r Report) Format() string {
	var b strings.Builder

	b.WriteString("# Data Quality Report\n")
	fmt.Fprintf(&b, "- Records: %d\n", r.Total)
	fmt.Fprintf(&b, "- Average score: %.2f\n", r.AverageScore)
	fmt.Fprintf(&b, "- Suspicious records: %d\n\n", r.SuspiciousCount)

	b.WriteString("## Fields\n")
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f := r.Fields[k]
		fmt.Fprintf(&b, "- **%s**: %d missing (%.0f%%), %d invalid (%.0f%%)\n",
			k, f.Missing, f.MissingRate*100, f.Invalid, f.InvalidRate*100)
	}

	if len(r.Alerts) > 0 {
		b.WriteString("\n## Alerts\n")
		for _, a := range r.Alerts {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	return b.String()
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
