package contact

import (
	"strings"

	phonenumbers "github.com/nyaruka/phonenumbers"

	"github.com/sells-group/lead-dedup/internal/model"
)

const (
	minGenericDigits = 7
	maxGenericDigits = 12
)

var separatorStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")

// StripPhone removes separators (spaces, dashes, parentheses, dots) from a
// phone value, keeping a leading '+'.
func StripPhone(value string) string {
	return separatorStripper.Replace(strings.TrimSpace(value))
}

// phoneMatch is a resolved phone number. strict is false when the number
// was accepted by the generic LATAM heuristic rather than a country pattern.
type phoneMatch struct {
	rule     *CountryPhoneRule
	national string
	strict   bool
}

func (m phoneMatch) format() string {
	if m.strict {
		return m.rule.render(m.national)
	}
	return "+" + m.rule.CallingCode + " " + m.national
}

// ValidatePhoneNumber reports whether value is a valid phone number for
// country. With an empty country the country is detected from a leading
// "+<calling code>", falling back to a generic LATAM digit-count heuristic.
// Unknown country codes are never valid.
func ValidatePhoneNumber(value, country string) bool {
	_, ok := resolvePhone(value, country)
	return ok
}

// FormatPhoneNumber renders a valid phone number in the country's canonical
// layout, e.g. "+52 55 1234 5678". Invalid input is a call-contract
// violation and returns a *model.ValidationError.
func FormatPhoneNumber(value, country string) (string, error) {
	if country != "" {
		if _, ok := Rule(country); !ok {
			return "", &model.ValidationError{Field: "phone", Value: value, Reason: "unknown country code " + country}
		}
	}
	m, ok := resolvePhone(value, country)
	if !ok {
		reason := "not a valid phone number"
		if country != "" {
			reason += " for " + strings.ToUpper(country)
		}
		return "", &model.ValidationError{Field: "phone", Value: value, Reason: reason}
	}
	return m.format(), nil
}

// DetectCountry infers the country of a phone number from its calling code.
// Numbers with a '+' are resolved through libphonenumber; bare digits are
// matched against registered LATAM calling codes (the shared code 1 is
// ambiguous without a '+' and is skipped).
func DetectCountry(value string) (string, bool) {
	s := StripPhone(value)
	if s == "" {
		return "", false
	}
	if !strings.HasPrefix(s, "+") {
		if !allDigits(s) {
			return "", false
		}
		if r, _, ok := ruleForCallingCode(s, false); ok {
			return r.Country, true
		}
		return "", false
	}
	return detectInternational(s)
}

func detectInternational(s string) (string, bool) {
	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return "", false
	}
	if region := phonenumbers.GetRegionCodeForNumber(num); region != "" {
		if _, ok := rulesByCountry[region]; ok {
			return region, true
		}
	}
	region := phonenumbers.GetRegionCodeForCountryCode(int(num.GetCountryCode()))
	if _, ok := rulesByCountry[region]; ok {
		return region, true
	}
	return "", false
}

func resolvePhone(value, country string) (phoneMatch, bool) {
	s := StripPhone(value)
	plus := strings.HasPrefix(s, "+")
	digits := strings.TrimPrefix(s, "+")
	if digits == "" || !allDigits(digits) {
		return phoneMatch{}, false
	}

	if country != "" {
		r, ok := Rule(country)
		if !ok {
			return phoneMatch{}, false
		}
		return matchRule(r, digits, plus)
	}

	// A formatted generic match ("+<cc> <national>") must validate again, so
	// a failed strict match still gets the generic heuristic.
	if plus {
		if cc, ok := detectInternational(s); ok {
			if m, ok := matchRule(rulesByCountry[cc], digits, true); ok {
				return m, true
			}
		}
	}
	return matchGeneric(digits)
}

func matchRule(r *CountryPhoneRule, digits string, plus bool) (phoneMatch, bool) {
	if plus {
		if !strings.HasPrefix(digits, r.CallingCode) {
			return phoneMatch{}, false
		}
		c, ok := r.canonical(digits[len(r.CallingCode):])
		return phoneMatch{rule: r, national: c, strict: true}, ok
	}
	if strings.HasPrefix(digits, r.CallingCode) {
		if c, ok := r.canonical(digits[len(r.CallingCode):]); ok {
			return phoneMatch{rule: r, national: c, strict: true}, true
		}
	}
	c, ok := r.canonical(digits)
	return phoneMatch{rule: r, national: c, strict: true}, ok
}

func matchGeneric(digits string) (phoneMatch, bool) {
	r, national, ok := ruleForCallingCode(digits, false)
	if !ok {
		return phoneMatch{}, false
	}
	if c, ok := r.canonical(national); ok {
		return phoneMatch{rule: r, national: c, strict: true}, true
	}
	if len(national) < minGenericDigits || len(national) > maxGenericDigits {
		return phoneMatch{}, false
	}
	return phoneMatch{rule: r, national: national}, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
