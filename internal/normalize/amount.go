// Package normalize converts institution-specific amount, date and
// description strings into canonical values. Nothing here returns an
// error: malformed input degrades to zero or passes through unchanged.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer("$", "", ",", "", `"`, "")

// ParseAmount parses a formatted amount such as "$1,234.56".
// Empty or unparseable input yields zero.
func ParseAmount(s string) decimal.Decimal {
	clean := strings.TrimSpace(amountCleaner.Replace(s))
	if clean == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}
