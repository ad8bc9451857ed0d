package importer

import (
	"strings"

	"github.com/cleared-dev/txray/internal/model"
	"github.com/cleared-dev/txray/internal/normalize"
)

const (
	amexColDate   = "Date"
	amexColDesc   = "Description"
	amexColAmount = "Amount"
	amexColMember = "Card Member"
)

// AmexMapper maps American Express activity exports. The source reports
// charges as negative and credits as positive.
type AmexMapper struct {
	cat Categorizer
}

// NewAmexMapper returns a mapper categorizing descriptions with cat.
func NewAmexMapper(cat Categorizer) *AmexMapper {
	return &AmexMapper{cat: cat}
}

// Format returns the mapper format.
func (m *AmexMapper) Format() model.Format { return model.FormatAmex }

// AccountType returns the account type written to every transaction.
func (m *AmexMapper) AccountType() model.AccountType { return model.AccountTypeAmex }

// MapRow converts one Amex row.
func (m *AmexMapper) MapRow(row Row) (model.Transaction, bool, error) {
	date, err := row.Require(amexColDate)
	if err != nil {
		return model.Transaction{}, false, err
	}
	desc, err := row.Require(amexColDesc)
	if err != nil {
		return model.Transaction{}, false, err
	}
	rawAmount, err := row.Require(amexColAmount)
	if err != nil {
		return model.Transaction{}, false, err
	}

	source := normalize.ParseAmount(rawAmount)
	amount := source.Abs()
	txnType := model.TxnTypeDebit
	if source.IsPositive() {
		txnType = model.TxnTypeCredit
		amount = amount.Neg()
	}

	desc = strings.TrimSpace(desc)
	return model.Transaction{
		Date:            normalize.NormalizeDate(date),
		Description:     desc,
		Merchant:        normalize.ExtractMerchant(desc),
		Category:        categorizeDesc(m.cat, desc),
		Amount:          amount,
		AccountType:     m.AccountType(),
		AccountName:     strings.TrimSpace(row[amexColMember]),
		TransactionType: txnType,
		RawData:         rawRow(row),
	}, true, nil
}

func categorizeDesc(cat Categorizer, desc string) string {
	if cat == nil {
		return model.CategoryOther
	}
	return cat.Categorize(desc)
}
