// Package report summarizes stored transactions for the stats output.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/txray/internal/model"
)

// DefaultTopCategories is how many categories Write prints.
const DefaultTopCategories = 5

// AccountSummary totals one account type.
type AccountSummary struct {
	AccountType model.AccountType
	Count       int
	Spent       decimal.Decimal
	Credits     decimal.Decimal
}

// CategorySummary totals spending in one category.
type CategorySummary struct {
	Category string
	Count    int
	Spent    decimal.Decimal
}

// MonthSummary totals one YYYY-MM month.
type MonthSummary struct {
	Month  string
	Count  int
	Spent  decimal.Decimal
	Income decimal.Decimal
}

// Summary is the aggregate view of a transaction set.
type Summary struct {
	Total      int
	Spent      decimal.Decimal
	Income     decimal.Decimal
	Net        decimal.Decimal // Income - Spent
	Accounts   []AccountSummary
	Categories []CategorySummary
	Months     []MonthSummary
}

// Summarize aggregates txns. Positive amounts count as spending and
// negative amounts as income. Accounts and categories are ordered by spend,
// months newest first.
func Summarize(txns []model.Transaction) Summary {
	s := Summary{Total: len(txns), Spent: decimal.Zero, Income: decimal.Zero}

	accounts := map[model.AccountType]*AccountSummary{}
	categories := map[string]*CategorySummary{}
	months := map[string]*MonthSummary{}

	for _, t := range txns {
		acct, ok := accounts[t.AccountType]
		if !ok {
			acct = &AccountSummary{AccountType: t.AccountType, Spent: decimal.Zero, Credits: decimal.Zero}
			accounts[t.AccountType] = acct
		}
		acct.Count++

		category := t.Category
		if category == "" {
			category = model.CategoryUncategorized
		}
		cat, ok := categories[category]
		if !ok {
			cat = &CategorySummary{Category: category, Spent: decimal.Zero}
			categories[category] = cat
		}
		cat.Count++

		var month *MonthSummary
		if key := monthKey(t.Date); key != "" {
			if month, ok = months[key]; !ok {
				month = &MonthSummary{Month: key, Spent: decimal.Zero, Income: decimal.Zero}
				months[key] = month
			}
			month.Count++
		}

		switch {
		case t.Amount.IsPositive():
			s.Spent = s.Spent.Add(t.Amount)
			acct.Spent = acct.Spent.Add(t.Amount)
			cat.Spent = cat.Spent.Add(t.Amount)
			if month != nil {
				month.Spent = month.Spent.Add(t.Amount)
			}
		case t.Amount.IsNegative():
			in := t.Amount.Abs()
			s.Income = s.Income.Add(in)
			acct.Credits = acct.Credits.Add(in)
			if month != nil {
				month.Income = month.Income.Add(in)
			}
		}
	}
	s.Net = s.Income.Sub(s.Spent)

	for _, a := range accounts {
		s.Accounts = append(s.Accounts, *a)
	}
	sort.Slice(s.Accounts, func(i, j int) bool {
		a, b := s.Accounts[i], s.Accounts[j]
		if !a.Spent.Equal(b.Spent) {
			return a.Spent.GreaterThan(b.Spent)
		}
		return a.AccountType < b.AccountType
	})

	for _, c := range categories {
		s.Categories = append(s.Categories, *c)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		a, b := s.Categories[i], s.Categories[j]
		if !a.Spent.Equal(b.Spent) {
			return a.Spent.GreaterThan(b.Spent)
		}
		return a.Category < b.Category
	})

	for _, m := range months {
		s.Months = append(s.Months, *m)
	}
	sort.Slice(s.Months, func(i, j int) bool { return s.Months[i].Month > s.Months[j].Month })

	return s
}

// TopCategories returns at most n categories with spending.
func (s Summary) TopCategories(n int) []CategorySummary {
	var out []CategorySummary
	for _, c := range s.Categories {
		if len(out) == n {
			break
		}
		if c.Spent.IsPositive() {
			out = append(out, c)
		}
	}
	return out
}

// monthKey returns YYYY-MM for an ISO date and "" for anything else.
func monthKey(date string) string {
	if len(date) < 7 || date[4] != '-' {
		return ""
	}
	return date[:7]
}

// Write prints s in the plain-text stats layout.
func Write(w io.Writer, s Summary, topN int) {
	fmt.Fprintf(w, "Total transactions: %d\n", s.Total)
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "Total spent: %s\n", Money(s.Spent))
	fmt.Fprintf(w, "Total income: %s\n", Money(s.Income))
	fmt.Fprintf(w, "Net: %s\n", Money(s.Net))

	fmt.Fprintln(w, "\nBy account:")
	for _, a := range s.Accounts {
		fmt.Fprintf(w, "  %s: %d transactions, %s spent\n", a.AccountType, a.Count, Money(a.Spent))
	}

	top := s.TopCategories(topN)
	if len(top) == 0 {
		return
	}
	fmt.Fprintln(w, "\nTop categories:")
	for _, c := range top {
		fmt.Fprintf(w, "  %s: %s\n", c.Category, Money(c.Spent))
	}
}

// Money formats d as dollars with thousands separators, e.g. $1,234.50.
func Money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
