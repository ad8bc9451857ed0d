package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/cleared-dev/txray/internal/model"
)

// detectorColumns are the recurring columns detection owns. is_active and
// notes belong to the user and are never listed here.
var detectorColumns = []string{
	"category",
	"frequency",
	"average_amount",
	"last_amount",
	"last_date",
	"occurrence_count",
	"amount_variance",
	"is_subscription",
	"updated_at",
}

// RecurringUpdate carries user edits; nil fields are left alone.
type RecurringUpdate struct {
	IsActive *bool
	Notes    *string
}

// UpsertRecurring inserts rec or refreshes the detector-owned columns of
// the record with the same merchant pattern.
func (s *Store) UpsertRecurring(ctx context.Context, rec *model.RecurringTransaction) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_pattern"}},
		DoUpdates: clause.AssignmentColumns(detectorColumns),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("upserting recurring %q: %w", rec.MerchantPattern, err)
	}
	return nil
}

// RecurringTransactions lists recurring records by frequency, largest
// average first. activeOnly hides records the user deactivated.
func (s *Store) RecurringTransactions(ctx context.Context, activeOnly bool) ([]model.RecurringTransaction, error) {
	q := s.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var recs []model.RecurringTransaction
	if err := q.Order("frequency").Order("average_amount DESC").Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("querying recurring transactions: %w", err)
	}
	return recs, nil
}

// RecurringByID returns one recurring record.
func (s *Store) RecurringByID(ctx context.Context, id uint) (*model.RecurringTransaction, error) {
	var rec model.RecurringTransaction
	res := s.db.WithContext(ctx).Limit(1).Find(&rec, id)
	if res.Error != nil {
		return nil, fmt.Errorf("loading recurring %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("recurring %d: %w", id, ErrNotFound)
	}
	return &rec, nil
}

// UpdateRecurring applies user edits to a recurring record.
func (s *Store) UpdateRecurring(ctx context.Context, id uint, u RecurringUpdate) error {
	updates := map[string]any{}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.Notes != nil {
		updates["notes"] = *u.Notes
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	res := s.db.WithContext(ctx).Model(&model.RecurringTransaction{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("updating recurring %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recurring %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteRecurring removes a recurring record by id.
func (s *Store) DeleteRecurring(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.RecurringTransaction{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting recurring %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recurring %d: %w", id, ErrNotFound)
	}
	return nil
}
