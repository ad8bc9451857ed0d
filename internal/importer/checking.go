package importer

import (
	"strings"

	"github.com/cleared-dev/txray/internal/model"
	"github.com/cleared-dev/txray/internal/normalize"
)

const (
	checkingColDate       = "Date"
	checkingColDesc       = "Description"
	checkingColWithdrawal = "Withdrawal"
	checkingColDeposit    = "Deposit"

	checkingAccountName = "Checking Account"
)

// CheckingMapper maps checking exports with separate withdrawal and
// deposit columns. Rows where both are zero are dropped.
type CheckingMapper struct {
	cat Categorizer
}

// NewCheckingMapper returns a mapper categorizing descriptions with cat.
func NewCheckingMapper(cat Categorizer) *CheckingMapper {
	return &CheckingMapper{cat: cat}
}

// Format returns the mapper format.
func (m *CheckingMapper) Format() model.Format { return model.FormatChecking }

// AccountType returns the account type written to every transaction.
func (m *CheckingMapper) AccountType() model.AccountType { return model.AccountTypeChecking }

// MapRow converts one checking row.
func (m *CheckingMapper) MapRow(row Row) (model.Transaction, bool, error) {
	date, err := row.Require(checkingColDate)
	if err != nil {
		return model.Transaction{}, false, err
	}
	desc, err := row.Require(checkingColDesc)
	if err != nil {
		return model.Transaction{}, false, err
	}
	rawWithdrawal, err := row.Require(checkingColWithdrawal)
	if err != nil {
		return model.Transaction{}, false, err
	}
	rawDeposit, err := row.Require(checkingColDeposit)
	if err != nil {
		return model.Transaction{}, false, err
	}

	withdrawal := normalize.ParseAmount(rawWithdrawal)
	deposit := normalize.ParseAmount(rawDeposit)

	txn := model.Transaction{
		Date:        normalize.NormalizeDate(date),
		AccountType: m.AccountType(),
		AccountName: checkingAccountName,
		RawData:     rawRow(row),
	}
	switch {
	case !withdrawal.IsZero():
		txn.Amount = withdrawal.Abs()
		txn.TransactionType = model.TxnTypeWithdrawal
	case !deposit.IsZero():
		txn.Amount = deposit.Abs().Neg()
		txn.TransactionType = model.TxnTypeDeposit
	default:
		return model.Transaction{}, false, nil
	}

	desc = strings.TrimSpace(desc)
	txn.Description = desc
	txn.Merchant = normalize.ExtractMerchant(desc)
	txn.Category = categorizeDesc(m.cat, desc)
	return txn, true, nil
}
