package model

// Category labels produced by ingestion.
const (
	CategoryIncome         = "Income"
	CategoryTravel         = "Travel"
	CategoryAirlines       = "Airlines"
	CategorySoftware       = "Software/Tech"
	CategorySubscriptions  = "Subscriptions"
	CategoryInsurance      = "Insurance"
	CategoryGrocery        = "Grocery"
	CategoryDining         = "Dining"
	CategoryShopping       = "Shopping"
	CategoryGas            = "Gas"
	CategorySports         = "Sports/Exercise"
	CategoryTransportation = "Transportation"
	CategoryUtilities      = "Utilities"
	CategoryHealthcare     = "Healthcare"
	CategoryEntertainment  = "Entertainment"
	CategoryTransfer       = "Transfer"

	// CategoryOther is returned when no rule matches.
	CategoryOther = "Other"
	// CategoryUncategorized is the Apple Card default when a row has no category.
	CategoryUncategorized = "Uncategorized"
)

// IsUncategorized reports whether a category is one of the escape values.
func IsUncategorized(category string) bool {
	return category == "" || category == CategoryOther || category == CategoryUncategorized
}
