// Package recurrence finds merchants charged on a regular cadence and flags
// the ones that look like subscriptions.
package recurrence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/txray/internal/logger"
	"github.com/cleared-dev/txray/internal/metrics"
	"github.com/cleared-dev/txray/internal/model"
	"github.com/cleared-dev/txray/internal/normalize"
)

const (
	// MinOccurrences is the smallest group considered for recurrence.
	MinOccurrences = 3
	// groupKeyLen bounds the description prefix used when a row has no merchant.
	groupKeyLen = 30
)

// subscriptionTolerance is the largest amount spread, relative to the
// average, a subscription may show.
var subscriptionTolerance = decimal.RequireFromString("0.10")

var subscriptionCategories = map[string]bool{
	model.CategorySubscriptions: true,
	model.CategorySoftware:      true,
	model.CategoryEntertainment: true,
}

// Store is the persistence the detector needs.
type Store interface {
	// ExpenseTransactions returns positive-amount transactions.
	ExpenseTransactions(ctx context.Context) ([]model.Transaction, error)
	// UpsertRecurring writes a record keyed by merchant pattern without
	// touching user-owned fields of an existing one.
	UpsertRecurring(ctx context.Context, rec *model.RecurringTransaction) error
}

type occurrence struct {
	date     time.Time
	isoDate  string
	amount   decimal.Decimal
	category string
}

// GroupKey returns the key a transaction is grouped under.
func GroupKey(t model.Transaction) string {
	if t.Merchant != "" {
		return t.Merchant
	}
	return normalize.Truncate(t.Description, groupKeyLen)
}

// Analyze derives recurring records from expense transactions. Rows that
// are not expenses or whose date is not ISO are ignored. Output is ordered
// by merchant pattern.
func Analyze(txns []model.Transaction) []model.RecurringTransaction {
	groups := make(map[string][]occurrence)
	for _, t := range txns {
		if !t.IsExpense() {
			continue
		}
		d, ok := normalize.ParseISODate(t.Date)
		if !ok {
			continue
		}
		key := GroupKey(t)
		groups[key] = append(groups[key], occurrence{
			date:     d,
			isoDate:  t.Date,
			amount:   t.Amount,
			category: t.Category,
		})
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []model.RecurringTransaction
	for _, key := range keys {
		if rec, ok := analyzeGroup(key, groups[key]); ok {
			out = append(out, rec)
		}
	}
	return out
}

func analyzeGroup(key string, occ []occurrence) (model.RecurringTransaction, bool) {
	if len(occ) < MinOccurrences {
		return model.RecurringTransaction{}, false
	}
	sort.SliceStable(occ, func(i, j int) bool { return occ[i].date.Before(occ[j].date) })

	gaps := make([]int, len(occ)-1)
	for i := 1; i < len(occ); i++ {
		gaps[i-1] = int(occ[i].date.Sub(occ[i-1].date).Hours() / 24)
	}
	freq, ok := Classify(gaps)
	if !ok {
		return model.RecurringTransaction{}, false
	}

	sum := decimal.Zero
	lo, hi := occ[0].amount, occ[0].amount
	for _, o := range occ {
		sum = sum.Add(o.amount)
		lo = decimal.Min(lo, o.amount)
		hi = decimal.Max(hi, o.amount)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(occ))))
	variance := hi.Sub(lo)
	last := occ[len(occ)-1]
	category := occ[0].category

	subscription := (freq == model.FrequencyMonthly || freq == model.FrequencyAnnual) &&
		variance.LessThan(avg.Mul(subscriptionTolerance)) &&
		subscriptionCategories[category]

	return model.RecurringTransaction{
		MerchantPattern: key,
		Category:        category,
		Frequency:       freq,
		// average_amount is stored as cents; rounding here keeps a fresh
		// record equal to its stored copy. The tolerance above uses the exact mean.
		AverageAmount:   avg.Round(2),
		LastAmount:      last.amount,
		LastDate:        last.isoDate,
		OccurrenceCount: len(occ),
		AmountVariance:  variance,
		IsSubscription:  subscription,
		IsActive:        true,
	}, true
}

// Detector runs recurrence analysis against a store.
type Detector struct {
	store   Store
	metrics *metrics.Recorder
}

// Option configures a Detector.
type Option func(*Detector)

// WithMetrics records detection counts and timings on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Detector) { d.metrics = r }
}

// NewDetector returns a detector over store.
func NewDetector(store Store, opts ...Option) *Detector {
	d := &Detector{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scans the store once and upserts every detected record, returning
// how many were written. Running it again over unchanged data writes the
// same records. Callers must not run two detections concurrently.
func (d *Detector) Detect(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { d.metrics.ObserveDetection(time.Since(start)) }()

	txns, err := d.store.ExpenseTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading expenses: %w", err)
	}

	found := Analyze(txns)
	for i := range found {
		rec := &found[i]
		if err := d.store.UpsertRecurring(ctx, rec); err != nil {
			return i, fmt.Errorf("saving recurring %q: %w", rec.MerchantPattern, err)
		}
		d.metrics.RecurringDetected(rec.Frequency)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("transactions", len(txns)).
		Int("recurring", len(found)).
		Dur("took", time.Since(start)).
		Msg("recurrence detection finished")
	return len(found), nil
}
