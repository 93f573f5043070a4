package quality

import (
	"regexp"
	"strings"

	"github.com/sells-group/lead-dedup/internal/contact"
	"github.com/sells-group/lead-dedup/internal/model"
)

// ReasonPrefix starts every suspicious-data reason.
const ReasonPrefix = "Suspicious pattern: "

const minSequentialRun = 5

var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"guerrillamail.net": true,
	"sharklasers.com":   true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"getnada.com":       true,
	"dispostable.com":   true,
	"maildrop.cc":       true,
	"throwawaymail.com": true,
	"fakeinbox.com":     true,
	"mailnesia.com":     true,
	"mintemail.com":     true,
	"spamgourmet.com":   true,
	"emailondeck.com":   true,
	"burnermail.io":     true,
	"moakt.com":         true,
}

var (
	genericLocalPart  = regexp.MustCompile(`^(?:test\d*|admin|info|noreply|no-reply|sales)$`)
	placeholderDomain = regexp.MustCompile(`^(?:example|test)\.`)
	leadingZeros      = regexp.MustCompile(`^0{2,}`)
	placeholderName   = regexp.MustCompile(`(?i)^\s*(?:test|dummy|sample|fake|lorem ipsum|n/a|asdf)\b`)
)

// FlagSuspiciousData checks rec's email, phone and business name against
// known placeholder and test-data patterns. The result maps a field to its
// reasons joined by "; ". Fields without hits are omitted. It never fails.
func FlagSuspiciousData(rec model.Record) map[string]string {
	flags := make(map[string]string)
	add := func(field string, hits []string) {
		if len(hits) == 0 {
			return
		}
		for i, h := range hits {
			hits[i] = ReasonPrefix + h
		}
		flags[field] = strings.Join(hits, "; ")
	}

	if v := rec.Text(FieldEmail); strings.TrimSpace(v) != "" {
		add(FieldEmail, emailHits(v))
	}
	if v := rec.Text(FieldPhone); strings.TrimSpace(v) != "" {
		add(FieldPhone, phoneHits(v))
	}
	if v := rec.Text(FieldBusinessName); placeholderName.MatchString(v) {
		add(FieldBusinessName, []string{"placeholder business name"})
	}
	return flags
}

func emailHits(v string) []string {
	local, domain, ok := contact.SplitEmail(v)
	if !ok {
		return nil
	}
	var hits []string
	if isDisposable(domain) {
		hits = append(hits, "disposable domain "+domain)
	}
	if placeholderDomain.MatchString(domain) {
		hits = append(hits, "placeholder domain "+domain)
	}
	if genericLocalPart.MatchString(local) {
		hits = append(hits, "generic local part "+local)
	}
	if len(local) < 2 {
		hits = append(hits, "local part shorter than 2 characters")
	}
	return hits
}

func isDisposable(domain string) bool {
	for d := domain; d != ""; {
		if disposableDomains[d] {
			return true
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			break
		}
		d = d[dot+1:]
	}
	return false
}

func phoneHits(v string) []string {
	digits := strings.TrimPrefix(contact.StripPhone(v), "+")
	if digits == "" || !isDigits(digits) {
		return nil
	}
	var hits []string
	if len(digits) > 1 && strings.Count(digits, digits[:1]) == len(digits) {
		hits = append(hits, "repeated digits")
	}
	if hasAscendingRun(digits) {
		hits = append(hits, "sequential digits")
	}
	if leadingZeros.MatchString(digits) {
		hits = append(hits, "multiple leading zeros")
	}
	return hits
}

// hasAscendingRun reports whether digits contains at least
// minSequentialRun consecutive digits each one more than the last, as in
// "12345".
func hasAscendingRun(digits string) bool {
	run := 1
	for i := 1; i < len(digits); i++ {
		if digits[i] == digits[i-1]+1 {
			run++
			if run >= minSequentialRun {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
