package model

// AccountType identifies the institution/product a transaction was exported from.
type AccountType string

const (
	AccountTypeAmex      AccountType = "Amex"
	AccountTypeAppleCard AccountType = "Apple Card"
	AccountTypeChecking  AccountType = "Checking"
)

// Format identifies a source file layout.
type Format string

const (
	FormatAmex     Format = "amex"
	FormatApple    Format = "apple"
	FormatChecking Format = "checking"
)

// Formats returns every supported format in detection priority order.
func Formats() []Format {
	return []Format{FormatAmex, FormatApple, FormatChecking}
}
