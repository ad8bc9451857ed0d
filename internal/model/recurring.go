package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the cadence of a recurring payment.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// RecurringTransaction is a detected recurring payment keyed by merchant pattern.
// IsActive and Notes belong to the user; detection never overwrites them.
type RecurringTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	MerchantPattern string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"merchant_pattern"`
	Category        string          `gorm:"type:varchar(50)" json:"category"`
	Frequency       Frequency       `gorm:"type:varchar(16);not null" json:"frequency"`
	AverageAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"average_amount"`
	LastAmount      decimal.Decimal `gorm:"type:decimal(15,2)" json:"last_amount"`
	LastDate        string          `gorm:"type:varchar(32)" json:"last_date"`
	OccurrenceCount int             `gorm:"default:0" json:"occurrence_count"`
	AmountVariance  decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"amount_variance"`
	IsSubscription  bool            `gorm:"default:false" json:"is_subscription"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName returns the table name for RecurringTransaction.
func (RecurringTransaction) TableName() string {
	return "recurring_transactions"
}

// SameDerived reports whether two records carry identical detector output.
func (r RecurringTransaction) SameDerived(o RecurringTransaction) bool {
	return r.MerchantPattern == o.MerchantPattern &&
		r.Category == o.Category &&
		r.Frequency == o.Frequency &&
		r.AverageAmount.Equal(o.AverageAmount) &&
		r.LastAmount.Equal(o.LastAmount) &&
		r.LastDate == o.LastDate &&
		r.OccurrenceCount == o.OccurrenceCount &&
		r.AmountVariance.Equal(o.AmountVariance) &&
		r.IsSubscription == o.IsSubscription
}
