package contact

import (
	"regexp"
	"sort"
	"strings"
)

// CountryPhoneRule describes how one country's phone numbers are validated
// and rendered. National must capture the canonical national significant
// number in group 1, and must accept that canonical form on its own.
type CountryPhoneRule struct {
	Country     string // ISO-3166 alpha-2
	Name        string
	CallingCode string
	National    *regexp.Regexp
	// Templates maps canonical national length to a layout where each '#'
	// is replaced by the next digit.
	Templates map[int]string
}

// canonical returns the canonical national number for national, or false
// when it does not match the country pattern.
func (r *CountryPhoneRule) canonical(national string) (string, bool) {
	m := r.National.FindStringSubmatch(national)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// render lays out a canonical national number as "+<cc> <template>".
func (r *CountryPhoneRule) render(canonical string) string {
	tmpl, ok := r.Templates[len(canonical)]
	if !ok {
		return "+" + r.CallingCode + " " + canonical
	}
	var b strings.Builder
	b.WriteString("+")
	b.WriteString(r.CallingCode)
	b.WriteString(" ")
	i := 0
	for _, c := range tmpl {
		if c == '#' && i < len(canonical) {
			b.WriteByte(canonical[i])
			i++
			continue
		}
		b.WriteRune(c)
	}
	b.WriteString(canonical[i:])
	return b.String()
}

var countryRules = []CountryPhoneRule{
	{Country: "AR", Name: "Argentina", CallingCode: "54",
		National:  regexp.MustCompile(`^0?(9?[1-9]\d{9})$`),
		Templates: map[int]string{11: "# ## ####-####", 10: "## ####-####"}},
	{Country: "BO", Name: "Bolivia", CallingCode: "591",
		National:  regexp.MustCompile(`^0?([2-7]\d{7})$`),
		Templates: map[int]string{8: "#### ####"}},
	{Country: "BR", Name: "Brazil", CallingCode: "55",
		National:  regexp.MustCompile(`^0?([1-9]{2}9?\d{8})$`),
		Templates: map[int]string{11: "## #####-####", 10: "## ####-####"}},
	{Country: "CL", Name: "Chile", CallingCode: "56",
		National:  regexp.MustCompile(`^([2-9]\d{8})$`),
		Templates: map[int]string{9: "# #### ####"}},
	{Country: "CO", Name: "Colombia", CallingCode: "57",
		National:  regexp.MustCompile(`^(3\d{9}|60\d{8})$`),
		Templates: map[int]string{10: "### #######"}},
	{Country: "CR", Name: "Costa Rica", CallingCode: "506",
		National:  regexp.MustCompile(`^([2-8]\d{7})$`),
		Templates: map[int]string{8: "####-####"}},
	{Country: "CU", Name: "Cuba", CallingCode: "53",
		National:  regexp.MustCompile(`^0?([2-7]\d{7})$`),
		Templates: map[int]string{8: "# ### ####"}},
	{Country: "DO", Name: "Dominican Republic", CallingCode: "1",
		National:  regexp.MustCompile(`^((?:809|829|849)\d{7})$`),
		Templates: map[int]string{10: "###-###-####"}},
	{Country: "EC", Name: "Ecuador", CallingCode: "593",
		National:  regexp.MustCompile(`^0?(9\d{8}|[2-7]\d{7})$`),
		Templates: map[int]string{9: "## ### ####", 8: "# ### ####"}},
	{Country: "SV", Name: "El Salvador", CallingCode: "503",
		National:  regexp.MustCompile(`^([267]\d{7})$`),
		Templates: map[int]string{8: "####-####"}},
	{Country: "GT", Name: "Guatemala", CallingCode: "502",
		National:  regexp.MustCompile(`^([2-7]\d{7})$`),
		Templates: map[int]string{8: "####-####"}},
	{Country: "HN", Name: "Honduras", CallingCode: "504",
		National:  regexp.MustCompile(`^([2389]\d{7})$`),
		Templates: map[int]string{8: "####-####"}},
	{Country: "HT", Name: "Haiti", CallingCode: "509",
		National:  regexp.MustCompile(`^([2-4]\d{7})$`),
		Templates: map[int]string{8: "## ## ####"}},
	{Country: "MX", Name: "Mexico", CallingCode: "52",
		National:  regexp.MustCompile(`^(?:01|1)?([2-9]\d{9})$`),
		Templates: map[int]string{10: "## #### ####"}},
	{Country: "NI", Name: "Nicaragua", CallingCode: "505",
		National:  regexp.MustCompile(`^([2578]\d{7})$`),
		Templates: map[int]string{8: "#### ####"}},
	{Country: "PA", Name: "Panama", CallingCode: "507",
		National:  regexp.MustCompile(`^([2-9]\d{6,7})$`),
		Templates: map[int]string{8: "####-####", 7: "###-####"}},
	{Country: "PY", Name: "Paraguay", CallingCode: "595",
		National:  regexp.MustCompile(`^0?([2-9]\d{7,8})$`),
		Templates: map[int]string{9: "### ### ###", 8: "## ### ###"}},
	{Country: "PE", Name: "Peru", CallingCode: "51",
		National:  regexp.MustCompile(`^0?(9\d{8}|[1-8]\d{7})$`),
		Templates: map[int]string{9: "### ### ###", 8: "# ### ####"}},
	{Country: "UY", Name: "Uruguay", CallingCode: "598",
		National:  regexp.MustCompile(`^0?([249]\d{7})$`),
		Templates: map[int]string{8: "# ### ####"}},
	{Country: "VE", Name: "Venezuela", CallingCode: "58",
		National:  regexp.MustCompile(`^0?([24]\d{9})$`),
		Templates: map[int]string{10: "### ### ####"}},
}

var rulesByCountry = func() map[string]*CountryPhoneRule {
	m := make(map[string]*CountryPhoneRule, len(countryRules))
	for i := range countryRules {
		m[countryRules[i].Country] = &countryRules[i]
	}
	return m
}()

// rulesByCallingCode holds rules sorted by descending calling-code length
// so prefix matching prefers 593 over 59.
var rulesByCallingCode = func() []*CountryPhoneRule {
	out := make([]*CountryPhoneRule, 0, len(countryRules))
	for i := range countryRules {
		out = append(out, &countryRules[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].CallingCode) > len(out[j].CallingCode)
	})
	return out
}()

// Rule returns the phone rule registered for an ISO alpha-2 country code.
func Rule(country string) (*CountryPhoneRule, bool) {
	r, ok := rulesByCountry[strings.ToUpper(strings.TrimSpace(country))]
	return r, ok
}

// Countries returns the registered country codes in alphabetical order.
func Countries() []string {
	out := make([]string, 0, len(rulesByCountry))
	for cc := range rulesByCountry {
		out = append(out, cc)
	}
	sort.Strings(out)
	return out
}

// ruleForCallingCode returns the rule whose calling code prefixes digits.
// The shared North American code is skipped unless allowNANP is set.
func ruleForCallingCode(digits string, allowNANP bool) (*CountryPhoneRule, string, bool) {
	for _, r := range rulesByCallingCode {
		if r.CallingCode == "1" && !allowNANP {
			continue
		}
		if strings.HasPrefix(digits, r.CallingCode) {
			return r, digits[len(r.CallingCode):], true
		}
	}
	return nil, "", false
}
