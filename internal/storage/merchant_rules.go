package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
)

// GetMerchantRule retrieves the rule for a merchant, if one exists.
func (s *SQLiteStorage) GetMerchantRule(ctx context.Context, merchant string) (*model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}

	var rule model.MerchantRule
	var source string
	err := s.db.QueryRowContext(ctx, `
		SELECT merchant, category_id, source, use_count, last_updated
		FROM merchant_rules WHERE merchant = ?`, merchant,
	).Scan(&rule.Merchant, &rule.CategoryID, &source, &rule.UseCount, &rule.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("merchant rule %q: %w", merchant, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant rule: %w", err)
	}

	rule.Source = model.RuleSource(source)
	return &rule, nil
}

// SaveMerchantRule creates or replaces a merchant rule.
func (s *SQLiteStorage) SaveMerchantRule(ctx context.Context, rule *model.MerchantRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := validateString(rule.Merchant, "merchant"); err != nil {
		return err
	}
	if rule.CategoryID <= 0 {
		return fmt.Errorf("rule category id must be positive")
	}

	if rule.Source == "" {
		rule.Source = model.RuleSourceAuto
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_rules (merchant, category_id, source, use_count, last_updated)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(merchant) DO UPDATE SET
			category_id = excluded.category_id,
			source = excluded.source,
			last_updated = CURRENT_TIMESTAMP`,
		rule.Merchant, rule.CategoryID, string(rule.Source), rule.UseCount)
	if err != nil {
		return fmt.Errorf("failed to save merchant rule: %w", err)
	}

	return nil
}

// ListMerchantRules returns all merchant rules ordered by merchant name.
func (s *SQLiteStorage) ListMerchantRules(ctx context.Context) ([]model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT merchant, category_id, source, use_count, last_updated
		FROM merchant_rules ORDER BY merchant`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.MerchantRule
	for rows.Next() {
		var rule model.MerchantRule
		var source string
		if err := rows.Scan(&rule.Merchant, &rule.CategoryID, &source,
			&rule.UseCount, &rule.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan merchant rule: %w", err)
		}
		rule.Source = model.RuleSource(source)
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// IncrementMerchantRuleUse bumps a rule's use counter.
func (s *SQLiteStorage) IncrementMerchantRuleUse(ctx context.Context, merchant string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE merchant_rules SET use_count = use_count + 1 WHERE merchant = ?`,
		merchant)
	if err != nil {
		return fmt.Errorf("failed to increment merchant rule use: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("merchant rule %q: %w", merchant, common.ErrNotFound)
	}

	return nil
}
