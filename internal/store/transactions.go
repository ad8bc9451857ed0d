package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cleared-dev/txray/internal/model"
)

// Filter narrows QueryAll. Zero fields match everything; Start and End are
// inclusive ISO dates.
type Filter struct {
	Start       string
	End         string
	Category    string
	AccountType model.AccountType
	Limit       int
}

// Fingerprint identifies a transaction across imports. ordinal counts
// earlier identical rows in the same file so genuine repeats survive.
func Fingerprint(t model.Transaction, ordinal int) string {
	h := sha256.New()
	for _, part := range []string{
		string(t.AccountType),
		t.Date,
		t.Description,
		t.Amount.StringFixed(2),
		strconv.Itoa(ordinal),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// InsertBulk stores txns in one database transaction and returns how many
// rows were written. With dedupe on, rows whose fingerprint already exists
// are skipped.
func (s *Store) InsertBulk(ctx context.Context, txns []model.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	if s.dedupe {
		seen := make(map[string]int, len(txns))
		for i := range txns {
			base := Fingerprint(txns[i], 0)
			fp := Fingerprint(txns[i], seen[base])
			seen[base]++
			txns[i].Fingerprint = &fp
		}
	}

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range txns {
			q := tx
			if s.dedupe {
				q = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "fingerprint"}},
					DoNothing: true,
				})
			}
			res := q.Create(&txns[i])
			if res.Error != nil {
				return fmt.Errorf("inserting transaction %d: %w", i+1, res.Error)
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// QueryAll returns transactions matching f, newest first.
func (s *Store) QueryAll(ctx context.Context, f Filter) ([]model.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&model.Transaction{})
	if f.Start != "" {
		q = q.Where("date >= ?", f.Start)
	}
	if f.End != "" {
		q = q.Where("date <= ?", f.End)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.AccountType != "" {
		q = q.Where("account_type = ?", f.AccountType)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var txns []model.Transaction
	if err := q.Order("date DESC").Order("id DESC").Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	return txns, nil
}

// ExpenseTransactions returns positive-amount transactions ordered by
// merchant then date.
func (s *Store) ExpenseTransactions(ctx context.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.db.WithContext(ctx).
		Where("amount > 0").
		Order("merchant").Order("date").Order("id").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	return txns, nil
}

// CountTransactions returns the number of stored transactions.
func (s *Store) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Transaction{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// ClearTransactions deletes every transaction and returns how many went.
// Mappings and recurring records are kept.
func (s *Store) ClearTransactions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.Transaction{})
	if res.Error != nil {
		return 0, fmt.Errorf("clearing transactions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// likePattern builds a case-insensitive substring LIKE argument for
// UPPER(description), escaping LIKE metacharacters. SQLite's UPPER folds
// ASCII only, so the pattern is folded the same way there.
func (s *Store) likePattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if s.db.Dialector.Name() == "postgres" {
		pattern = strings.ToUpper(pattern)
	} else {
		pattern = asciiUpper(pattern)
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(pattern) + "%"
}

func asciiUpper(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, s)
}

// TransactionsByPattern returns transactions whose description contains
// pattern, ignoring case.
func (s *Store) TransactionsByPattern(ctx context.Context, pattern string, limit int) ([]model.Transaction, error) {
	q := s.db.WithContext(ctx).
		Where(`UPPER(description) LIKE ? ESCAPE '\'`, s.likePattern(pattern)).
		Order("date DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var txns []model.Transaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("querying transactions by pattern: %w", err)
	}
	return txns, nil
}
