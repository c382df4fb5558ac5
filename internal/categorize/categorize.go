// Package categorize resolves transaction categories from merchant rules and
// the aggregator's own classification. User-assigned categories always take
// precedence and are never overwritten here.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/service"
)

// defaultProviderMapping translates the aggregator's category names into the
// seeded internal categories. Unmapped provider categories are tried verbatim
// against the category table before giving up.
var defaultProviderMapping = map[string]string{
	"Income":                 "Revenue",
	"Salary":                 "Revenue",
	"Sales":                  "Revenue",
	"Payroll":                "Payroll",
	"Rent":                   "Rent & Utilities",
	"Utilities":              "Rent & Utilities",
	"Internet":               "Rent & Utilities",
	"Telecommunications":     "Rent & Utilities",
	"Software":               "Software & Services",
	"Online services":        "Software & Services",
	"Digital services":       "Software & Services",
	"Taxes":                  "Taxes & Fees",
	"Bank fees":              "Taxes & Fees",
	"Government fees":        "Taxes & Fees",
	"Transfers":              "Transfers",
	"Same person transfer":   "Transfers",
	"Investment transfer":    "Transfers",
	"Credit card payment":    "Transfers",
	"Loans and installments": "Taxes & Fees",
}

// Categorizer assigns categories to newly ingested transactions.
type Categorizer struct {
	store   service.Storage
	logger  *slog.Logger
	mapping map[string]string
}

// New creates a Categorizer backed by the given storage.
func New(store service.Storage) *Categorizer {
	return &Categorizer{
		store:   store,
		logger:  slog.Default().With("component", "categorize"),
		mapping: defaultProviderMapping,
	}
}

// Resolve determines the category for a transaction. Precedence: merchant
// rule, then provider category mapping, then verbatim provider category name.
// Returns nil when no category can be determined; the transaction stays
// uncategorized rather than guessing.
func (c *Categorizer) Resolve(ctx context.Context, txn *model.Transaction) (*int, error) {
	if txn == nil {
		return nil, fmt.Errorf("transaction cannot be nil")
	}

	if txn.MerchantName != "" {
		rule, err := c.store.GetMerchantRule(ctx, txn.MerchantName)
		switch {
		case err == nil:
			if incErr := c.store.IncrementMerchantRuleUse(ctx, rule.Merchant); incErr != nil {
				c.logger.Warn("Failed to bump merchant rule use count",
					"merchant", rule.Merchant, "error", incErr)
			}
			return &rule.CategoryID, nil
		case !errors.Is(err, common.ErrNotFound):
			return nil, fmt.Errorf("failed to look up merchant rule: %w", err)
		}
	}

	if txn.ProviderCategory == "" {
		return nil, nil
	}

	name, ok := c.mapping[txn.ProviderCategory]
	if !ok {
		name = txn.ProviderCategory
	}

	category, err := c.store.GetCategoryByName(ctx, name)
	if errors.Is(err, common.ErrNotFound) {
		c.logger.Debug("No category for provider hint",
			"provider_category", txn.ProviderCategory)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	return &category.ID, nil
}
