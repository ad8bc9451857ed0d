package model

import "time"

// CategoryMapping is a user-supplied merchant substring to category override.
type CategoryMapping struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MerchantPattern string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"merchant_pattern"`
	Category        string    `gorm:"type:varchar(50);not null" json:"category"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName returns the table name for CategoryMapping.
func (CategoryMapping) TableName() string {
	return "category_mappings"
}
