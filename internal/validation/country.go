package validation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-dedup/internal/contact"
	"github.com/sells-group/lead-dedup/internal/model"
)

// Record fields consulted when inferring a country.
const (
	fieldCountryCode = "country_code"
	fieldCountry     = "country"
	fieldLocation    = "location"
	fieldAddress     = "address"
	fieldPhone       = "phone"
	fieldEmail       = "email"
)

type placeAlias struct {
	name    string
	country string
}

// countryNames are checked before cities so "Santiago, Chile" resolves by
// its country.
var countryNames = []placeAlias{
	{"argentina", "AR"},
	{"bolivia", "BO"},
	{"brasil", "BR"},
	{"brazil", "BR"},
	{"chile", "CL"},
	{"colombia", "CO"},
	{"costa rica", "CR"},
	{"cuba", "CU"},
	{"republica dominicana", "DO"},
	{"dominican republic", "DO"},
	{"ecuador", "EC"},
	{"el salvador", "SV"},
	{"guatemala", "GT"},
	{"honduras", "HN"},
	{"haiti", "HT"},
	{"mexico", "MX"},
	{"nicaragua", "NI"},
	{"panama", "PA"},
	{"paraguay", "PY"},
	{"peru", "PE"},
	{"uruguay", "UY"},
	{"venezuela", "VE"},
}

var cityNames = []placeAlias{
	{"buenos aires", "AR"},
	{"rosario", "AR"},
	{"santa cruz de la sierra", "BO"},
	{"cochabamba", "BO"},
	{"sao paulo", "BR"},
	{"rio de janeiro", "BR"},
	{"belo horizonte", "BR"},
	{"santiago", "CL"},
	{"valparaiso", "CL"},
	{"bogota", "CO"},
	{"medellin", "CO"},
	{"barranquilla", "CO"},
	{"la habana", "CU"},
	{"havana", "CU"},
	{"santo domingo", "DO"},
	{"quito", "EC"},
	{"guayaquil", "EC"},
	{"san salvador", "SV"},
	{"tegucigalpa", "HN"},
	{"san pedro sula", "HN"},
	{"port-au-prince", "HT"},
	{"cdmx", "MX"},
	{"ciudad de mexico", "MX"},
	{"guadalajara", "MX"},
	{"monterrey", "MX"},
	{"puebla", "MX"},
	{"managua", "NI"},
	{"asuncion", "PY"},
	{"lima", "PE"},
	{"arequipa", "PE"},
	{"montevideo", "UY"},
	{"caracas", "VE"},
	{"maracaibo", "VE"},
}

// InferCountry picks the ISO code used to validate rec's phone: an explicit
// country_code (or two-letter country), then the calling code of a
// +-prefixed phone, then a country or city named in the country, location
// or address fields, then fallback. It returns "" when nothing applies.
func InferCountry(rec model.Record, fallback string) string {
	for _, f := range []string{fieldCountryCode, fieldCountry} {
		if v := strings.TrimSpace(rec.Text(f)); len(v) == 2 {
			if r, ok := contact.Rule(v); ok {
				return r.Country
			}
		}
	}

	// Bare digits are ambiguous (5512345678 is a Mexico City number, not
	// Brazil), so only international numbers are used here.
	if phone := contact.StripPhone(rec.Text(fieldPhone)); strings.HasPrefix(phone, "+") {
		if cc, ok := contact.DetectCountry(phone); ok {
			return cc
		}
	}

	var texts []string
	for _, f := range []string{fieldCountry, fieldLocation, fieldAddress} {
		if rec.Has(f) {
			texts = append(texts, " "+foldPlace(rec.Text(f))+" ")
		}
	}
	for _, table := range [][]placeAlias{countryNames, cityNames} {
		for _, t := range texts {
			for _, p := range table {
				if strings.Contains(t, " "+p.name+" ") {
					return p.country
				}
			}
		}
	}

	if r, ok := contact.Rule(fallback); ok {
		return r.Country
	}
	return ""
}

// foldPlace lowercases s, strips accents and turns punctuation into
// spaces so names can be matched on word boundaries.
func foldPlace(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, out)
	return strings.Join(strings.Fields(out), " ")
}
