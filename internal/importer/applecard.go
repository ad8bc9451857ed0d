package importer

import (
	"strings"

	"github.com/cleared-dev/txray/internal/model"
	"github.com/cleared-dev/txray/internal/normalize"
)

const (
	appleColDate      = "Transaction Date"
	appleColDesc      = "Description"
	appleColAmount    = "Amount (USD)"
	appleColCategory  = "Category"
	appleColMerchant  = "Merchant"
	appleColPurchaser = "Purchased By"
)

// appleCategories maps Apple Card category names onto txray categories.
// Names not listed pass through unchanged.
var appleCategories = map[string]string{
	"Restaurants":        model.CategoryDining,
	"Food and Drink":     model.CategoryDining,
	"Groceries":          model.CategoryGrocery,
	"Gas Stations":       model.CategoryGas,
	"Entertainment":      model.CategoryEntertainment,
	"Shopping":           model.CategoryShopping,
	"Travel":             model.CategoryTravel,
	"Transportation":     model.CategoryTransportation,
	"Health and Fitness": model.CategoryHealthcare,
	"Services":           model.CategoryOther,
}

// AppleCategory translates an Apple Card category name.
func AppleCategory(name string) string {
	if c, ok := appleCategories[name]; ok {
		return c
	}
	return name
}

// AppleCardMapper maps Apple Card exports. The source reports purchases as
// positive and payments as negative, and carries its own category and
// merchant columns, so rows are never run through the categorizer.
type AppleCardMapper struct{}

// NewAppleCardMapper returns an Apple Card mapper.
func NewAppleCardMapper() *AppleCardMapper { return &AppleCardMapper{} }

// Format returns the mapper format.
func (m *AppleCardMapper) Format() model.Format { return model.FormatApple }

// AccountType returns the account type written to every transaction.
func (m *AppleCardMapper) AccountType() model.AccountType { return model.AccountTypeAppleCard }

// MapRow converts one Apple Card row.
func (m *AppleCardMapper) MapRow(row Row) (model.Transaction, bool, error) {
	date, err := row.Require(appleColDate)
	if err != nil {
		return model.Transaction{}, false, err
	}
	desc, err := row.Require(appleColDesc)
	if err != nil {
		return model.Transaction{}, false, err
	}
	rawAmount, err := row.Require(appleColAmount)
	if err != nil {
		return model.Transaction{}, false, err
	}

	source := normalize.ParseAmount(rawAmount)
	amount := source.Abs()
	txnType := model.TxnTypePurchase
	if source.IsNegative() {
		txnType = model.TxnTypePayment
		amount = amount.Neg()
	}

	category := strings.TrimSpace(row[appleColCategory])
	if category == "" {
		category = model.CategoryUncategorized
	}

	return model.Transaction{
		Date:            normalize.NormalizeDate(date),
		Description:     strings.TrimSpace(desc),
		Merchant:        normalize.Truncate(strings.TrimSpace(row[appleColMerchant]), normalize.MaxMerchantLen),
		Category:        AppleCategory(category),
		Amount:          amount,
		AccountType:     m.AccountType(),
		AccountName:     strings.TrimSpace(row[appleColPurchaser]),
		TransactionType: txnType,
		RawData:         rawRow(row),
	}, true, nil
}
