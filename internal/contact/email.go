// Package contact validates and normalizes lead contact fields (email
// addresses and LATAM phone numbers).
package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._+\-]+@` +
	`(?:(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)+[A-Za-z]{2,}` +
	`|\[\d{1,3}(?:\.\d{1,3}){3}\]` +
	`|\d{1,3}(?:\.\d{1,3}){3})$`)

// ValidateEmail reports whether value looks like local@domain.tld. The
// domain may be an IP literal. Internationalized domains are converted to
// punycode before matching.
func ValidateEmail(value string) bool {
	s := strings.TrimSpace(value)
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	if !isASCII(domain) {
		ascii, err := idna.Lookup.ToASCII(domain)
		if err != nil {
			return false
		}
		s = s[:at+1] + ascii
	}
	return emailPattern.MatchString(s)
}

// FormatEmail trims and lowercases an address. It does not validate.
func FormatEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// SplitEmail returns the local part and domain of an address.
func SplitEmail(value string) (local, domain string, ok bool) {
	s := FormatEmail(value)
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return "", "", false
	}
	return s[:at], s[at+1:], true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
