// Package validation validates, normalizes, scores and flags lead records
// and annotates them with the results.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-dedup/internal/cache"
	"github.com/sells-group/lead-dedup/internal/contact"
	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/quality"
)

// Annotation field names appended to validated records.
const (
	FieldEmailValid      = "email_valid"
	FieldPhoneValid      = "phone_valid"
	FieldEmailFormatted  = "email_formatted"
	FieldPhoneFormatted  = "phone_formatted"
	FieldValidationScore = "validation_score"
	FieldValidationFlags = "validation_flags"
	FieldIsValid         = "is_valid"
)

// InvalidFormatReason flags a present email or phone that fails validation.
const InvalidFormatReason = "Invalid format"

// Mode decides how email and phone validity combine into IsValid.
type Mode string

const (
	// ModeBoth requires a valid email and a valid phone.
	ModeBoth Mode = "both"
	// ModeEither accepts a record with either one valid.
	ModeEither Mode = "either"
)

// ParseMode parses a validity mode. Empty means ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBoth:
		return ModeBoth, nil
	case ModeEither:
		return ModeEither, nil
	default:
		return "", &model.ConfigurationError{Setting: "valid_mode", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// Verdict is the memoized outcome of validating one field value.
type Verdict struct {
	Valid     bool
	Formatted string
}

// Options configures a Validator.
type Options struct {
	Mode           Mode
	DefaultCountry string
	Weights        quality.Weights
	// Cache memoizes field verdicts across records and runs. May be nil.
	Cache *cache.Cache[Verdict]
}

// Result is the validation outcome for one record.
type Result struct {
	EmailValid     bool              `json:"email_valid"`
	PhoneValid     bool              `json:"phone_valid"`
	EmailFormatted *string           `json:"email_formatted"`
	PhoneFormatted *string           `json:"phone_formatted"`
	Country        string            `json:"country,omitempty"`
	QualityScore   int               `json:"quality_score"`
	Flags          map[string]string `json:"flags"`
	IsValid        bool              `json:"is_valid"`
}

// Annotated pairs a record carrying the annotation fields with its result.
type Annotated struct {
	Record model.Record
	Result Result
}

// Validator runs the per-record validation pipeline.
type Validator struct {
	opts Options
}

// New returns a Validator. The mode defaults to ModeBoth.
func New(opts Options) (*Validator, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	for f, w := range opts.Weights {
		if w < 0 {
			return nil, &model.ConfigurationError{Setting: "weights." + f, Reason: "must not be negative"}
		}
	}
	if opts.DefaultCountry != "" {
		if _, ok := contact.Rule(opts.DefaultCountry); !ok {
			return nil, &model.ConfigurationError{Setting: "default_country", Reason: "unsupported country " + opts.DefaultCountry}
		}
	}
	return &Validator{opts: opts}, nil
}

// ValidateRecord infers the country, validates and formats email and
// phone, scores the record and collects its flags.
func (v *Validator) ValidateRecord(rec model.Record) Result {
	res := Result{Country: InferCountry(rec, v.opts.DefaultCountry)}

	email := v.emailVerdict(rec.Text(fieldEmail))
	res.EmailValid = email.Valid
	if email.Valid {
		res.EmailFormatted = &email.Formatted
	}

	phone := v.phoneVerdict(rec.Text(fieldPhone), res.Country)
	res.PhoneValid = phone.Valid
	if phone.Valid {
		res.PhoneFormatted = &phone.Formatted
	}

	res.QualityScore = quality.Score(rec, v.opts.Weights, quality.Validity{
		EmailValid: res.EmailValid,
		PhoneValid: res.PhoneValid,
	})

	res.Flags = quality.FlagSuspiciousData(rec)
	if rec.Has(fieldEmail) && !res.EmailValid {
		addFlag(res.Flags, fieldEmail, InvalidFormatReason)
	}
	if rec.Has(fieldPhone) && !res.PhoneValid {
		addFlag(res.Flags, fieldPhone, InvalidFormatReason)
	}

	if v.opts.Mode == ModeEither {
		res.IsValid = res.EmailValid || res.PhoneValid
	} else {
		res.IsValid = res.EmailValid && res.PhoneValid
	}
	return res
}

// Annotate validates rec and returns a copy carrying the annotation fields.
func (v *Validator) Annotate(rec model.Record) Annotated {
	res := v.ValidateRecord(rec)
	out := rec.
		With(FieldEmailValid, model.Bool(res.EmailValid)).
		With(FieldPhoneValid, model.Bool(res.PhoneValid)).
		With(FieldEmailFormatted, model.OptionalString(res.EmailFormatted)).
		With(FieldPhoneFormatted, model.OptionalString(res.PhoneFormatted)).
		With(FieldValidationScore, model.Number(float64(res.QualityScore))).
		With(FieldValidationFlags, flagsValue(res.Flags)).
		With(FieldIsValid, model.Bool(res.IsValid))
	return Annotated{Record: out, Result: res}
}

// Process annotates every record, preserving order.
func (v *Validator) Process(records []model.Record) []Annotated {
	start := time.Now()
	out := make([]Annotated, len(records))
	var valid int
	for i, rec := range records {
		out[i] = v.Annotate(rec)
		if out[i].Result.IsValid {
			valid++
		}
	}

	st := v.opts.Cache.Stats()
	zap.L().Info("validation: complete",
		zap.Int("records", len(records)),
		zap.Int("valid", valid),
		zap.Int("invalid", len(records)-valid),
		zap.String("mode", string(v.opts.Mode)),
		zap.Int64("cache_hits", st.Hits),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}

// FilterByQualityScore keeps annotated records scoring at least minScore,
// in their original order.
func FilterByQualityScore(anns []Annotated, minScore int) []Annotated {
	out := make([]Annotated, 0, len(anns))
	for _, a := range anns {
		if a.Result.QualityScore >= minScore {
			out = append(out, a)
		}
	}
	return out
}

// Records returns the annotated records.
func Records(anns []Annotated) []model.Record {
	out := make([]model.Record, len(anns))
	for i, a := range anns {
		out[i] = a.Record
	}
	return out
}

// Observations adapts annotated records for quality.BuildReport.
func Observations(anns []Annotated) []quality.Observation {
	out := make([]quality.Observation, len(anns))
	for i, a := range anns {
		out[i] = quality.Observation{
			Record:     a.Record,
			EmailValid: a.Result.EmailValid,
			PhoneValid: a.Result.PhoneValid,
			Score:      a.Result.QualityScore,
			Flagged:    len(a.Result.Flags) > 0,
		}
	}
	return out
}

func (v *Validator) emailVerdict(email string) Verdict {
	if strings.TrimSpace(email) == "" {
		return Verdict{}
	}
	return v.opts.Cache.GetOrCompute("email\x00"+email, func() Verdict {
		if !contact.ValidateEmail(email) {
			return Verdict{}
		}
		return Verdict{Valid: true, Formatted: contact.FormatEmail(email)}
	})
}

func (v *Validator) phoneVerdict(phone, country string) Verdict {
	if strings.TrimSpace(phone) == "" {
		return Verdict{}
	}
	return v.opts.Cache.GetOrCompute("phone\x00"+country+"\x00"+phone, func() Verdict {
		formatted, err := contact.FormatPhoneNumber(phone, country)
		if err != nil {
			return Verdict{}
		}
		return Verdict{Valid: true, Formatted: formatted}
	})
}

func addFlag(flags map[string]string, field, reason string) {
	if prev, ok := flags[field]; ok {
		flags[field] = prev + "; " + reason
		return
	}
	flags[field] = reason
}

// flagsValue encodes flags as a JSON object string (keys sorted), or
// null when there are none.
func flagsValue(flags map[string]string) model.Value {
	if len(flags) == 0 {
		return model.Null()
	}
	data, err := json.Marshal(flags)
	if err != nil {
		return model.Null()
	}
	return model.String(string(data))
}
