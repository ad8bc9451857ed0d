package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types written by the row mappers.
const (
	TxnTypeCredit     = "credit"
	TxnTypeDebit      = "debit"
	TxnTypePayment    = "payment"
	TxnTypePurchase   = "purchase"
	TxnTypeWithdrawal = "withdrawal"
	TxnTypeDeposit    = "deposit"
)

// Transaction is the canonical record every source format converges to.
type Transaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Date            string          `gorm:"type:varchar(32);not null;index" json:"date"` // YYYY-MM-DD, or the source text when unparseable
	Description     string          `gorm:"type:text;not null" json:"description"`
	Merchant        string          `gorm:"type:varchar(100);index" json:"merchant"`
	Category        string          `gorm:"type:varchar(50);index" json:"category"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"` // positive = money out, negative = money in
	AccountType     AccountType     `gorm:"type:varchar(32);not null;index" json:"account_type"`
	AccountName     string          `gorm:"type:varchar(255)" json:"account_name"`
	TransactionType string          `gorm:"type:varchar(32)" json:"transaction_type"`
	RawData         RawRow          `gorm:"type:text" json:"raw_data"`
	SourceFile      string          `gorm:"type:varchar(255)" json:"source_file,omitempty"`
	ImportBatch     string          `gorm:"type:varchar(36);index" json:"import_batch,omitempty"`
	Fingerprint     *string         `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName returns the table name for Transaction.
func (Transaction) TableName() string {
	return "transactions"
}

// IsExpense reports whether money left the account holder.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsPositive()
}
