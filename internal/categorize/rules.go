package categorize

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/txray/internal/model"
)

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules returns the built-in keyword table. Order is precedence:
// earlier rules shadow later ones, and Transfer stays last because its
// generic keywords would otherwise swallow specific merchants.
func DefaultRules() []Rule {
	return []Rule{
		{model.CategoryIncome, []string{"payroll", "salary", "interest paid", "platinum lululemon credit",
			"platinum amex credit", "cashback", "refund", "reimbursement"}},
		{model.CategoryTravel, []string{"amex fine hotels", "hotel collectn", "amextravel", "airbnb", "vrbo", "booking.com"}},
		{model.CategoryAirlines, []string{"american airlines", "delta", "united airlines", "southwest", "jetblue", "airline"}},
		{model.CategorySoftware, []string{"anthropic", "supabase", "claude.ai", "github", "aws", "google cloud", "vercel", "openai"}},
		{model.CategorySubscriptions, []string{"membership fee", "spotify", "netflix", "hulu", "apple music", "youtube premium",
			"apple.com/bill", "apple services", "nytimes", "aplpay nytimes"}},
		{model.CategoryInsurance, []string{"geico", "state farm", "progressive", "bcbs", "blue cross", "insurance", "ethos"}},
		{model.CategoryGrocery, []string{"grocery", "burbage", "food lion", "kroger", "whole foods", "trader joe",
			"publix", "safeway", "harris teeter", "wegmans"}},
		{model.CategoryDining, []string{"restaurant", "sugar", "malagon", "southbound", "tippling", "by the way", "merci",
			"cafe", "coffee", "one trick pony", "starbucks", "pizza", "burger",
			"grill", "bar", "bistro", "diner", "tst*", "fsp*blue"}},
		{model.CategoryShopping, []string{"amazon", "aplpay amazon", "amazon mktpl", "mktpl", "target", "walmart", "retail",
			"store", "shop", "mall", "lululemon", "j crew"}},
		{model.CategoryGas, []string{"circle k", "shell", "exxonmobil", "bp", "chevron", "gas station", "fuel", "citgo",
			"marathon", "sunoco", "wawa", "buc-ee", "qt ", "refuel", "parkers"}},
		{model.CategorySports, []string{"gym", "fitness", "yoga", "crossfit", "peloton", "strava", "marathon", "race",
			"running", "cycling", "swim", "athletic", "sports", "workout"}},
		{model.CategoryTransportation, []string{"uber", "lyft", "transit", "airport parking", "chs airport", "toll", "ultrasignup"}},
		{model.CategoryUtilities, []string{"dominion", "comcast", "xfinity", "electric", "power", "water", "gas company",
			"internet", "phone", "cellular", "verizon", "at&t"}},
		{model.CategoryHealthcare, []string{"pharmacy", "cvs", "walgreens", "medical", "doctor", "hospital"}},
		{model.CategoryEntertainment, []string{"movie", "theater", "concert", "show", "tickets"}},
		{model.CategoryTransfer, []string{"check paid", "check number", "check deposit", "mobile payment", "autopay payment",
			"applecard gsbank", "amex epayment", "amex dps",
			"venmo", "zelle", "transfer to", "transfer from",
			"funds transfer", "overdraft transfer", "payment received",
			"capital one", "pmt*charleston"}},
	}
}

// ValidateRules rejects rules with no category or blank keywords.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return errors.New("rule table is empty")
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("rule %d: category is required", i+1)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d (%s): no keywords", i+1, r.Category)
		}
		for _, kw := range r.Keywords {
			if kw == "" {
				return fmt.Errorf("rule %d (%s): blank keyword", i+1, r.Category)
			}
		}
	}
	return nil
}

// LoadRules reads an ordered rule table from a YAML file:
//
//	- category: Dining
//	  keywords: [restaurant, cafe]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return rules, nil
}
