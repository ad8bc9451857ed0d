package normalize

import (
	"regexp"
	"strings"
)

// MaxMerchantLen bounds the extracted merchant token, in characters.
const MaxMerchantLen = 100

// trailingNumber matches a run of five or more digits and everything after
// it: phone numbers, store numbers, reference codes.
var trailingNumber = regexp.MustCompile(`\s+\d{5,}.*`)

// ExtractMerchant reduces a free-text description to a short merchant token.
// Best effort only; two descriptions for the same merchant may differ.
func ExtractMerchant(description string) string {
	merchant, _, _ := strings.Cut(description, "  ")
	merchant = trailingNumber.ReplaceAllString(merchant, "")
	merchant = strings.TrimSpace(merchant)
	return Truncate(merchant, MaxMerchantLen)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
