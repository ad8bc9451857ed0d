package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cleared-dev/txray/internal/model"
)

// recategorizeChunk bounds the id list of one UPDATE.
const recategorizeChunk = 500

// CategoryMappings returns every learned mapping, newest first.
func (s *Store) CategoryMappings(ctx context.Context) ([]model.CategoryMapping, error) {
	var mappings []model.CategoryMapping
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&mappings).Error
	if err != nil {
		return nil, fmt.Errorf("querying category mappings: %w", err)
	}
	return mappings, nil
}

// SaveCategoryMapping creates the mapping for pattern or replaces its category.
func (s *Store) SaveCategoryMapping(ctx context.Context, pattern, category string) (*model.CategoryMapping, error) {
	pattern = strings.TrimSpace(pattern)
	category = strings.TrimSpace(category)
	if pattern == "" {
		return nil, errors.New("merchant pattern is required")
	}
	if category == "" {
		return nil, errors.New("category is required")
	}

	m := &model.CategoryMapping{
		MerchantPattern: pattern,
		Category:        category,
		CreatedAt:       time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_pattern"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "created_at"}),
	}).Create(m).Error
	if err != nil {
		return nil, fmt.Errorf("saving category mapping: %w", err)
	}

	var saved model.CategoryMapping
	if err := s.db.WithContext(ctx).Where("merchant_pattern = ?", pattern).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reloading category mapping: %w", err)
	}
	return &saved, nil
}

// DeleteCategoryMapping removes a mapping by id.
func (s *Store) DeleteCategoryMapping(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.CategoryMapping{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting category mapping: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category mapping %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecategorizeByPattern assigns category to stored transactions whose
// description contains pattern, touching only rows still in Other,
// Uncategorized or blank. It returns the number of rows changed.
func (s *Store) RecategorizeByPattern(ctx context.Context, pattern, category string) (int64, error) {
	if strings.TrimSpace(pattern) == "" {
		return 0, errors.New("merchant pattern is required")
	}

	var changed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var matches []model.Transaction
		err := tx.Select("id", "category").
			Where(`UPPER(description) LIKE ? ESCAPE '\'`, s.likePattern(pattern)).
			Find(&matches).Error
		if err != nil {
			return err
		}

		var ids []uint
		for _, t := range matches {
			if model.IsUncategorized(t.Category) {
				ids = append(ids, t.ID)
			}
		}

		for start := 0; start < len(ids); start += recategorizeChunk {
			end := min(start+recategorizeChunk, len(ids))
			res := tx.Model(&model.Transaction{}).Where("id IN ?", ids[start:end]).Update("category", category)
			if res.Error != nil {
				return res.Error
			}
			changed += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("recategorizing transactions: %w", err)
	}
	return changed, nil
}
