package model

import "time"

// RuleSource indicates how a merchant rule was created.
type RuleSource string

const (
	// RuleSourceAuto indicates the rule was created automatically during sync.
	RuleSourceAuto RuleSource = "AUTO"
	// RuleSourceManual indicates the rule was created via CLI command.
	RuleSourceManual RuleSource = "MANUAL"
	// RuleSourceAutoConfirmed indicates an auto-created rule the user has edited.
	RuleSourceAutoConfirmed RuleSource = "AUTO_CONFIRMED"
)

// MerchantRule maps a known merchant to a category. Rules outrank the
// aggregator's category hints during categorization.
type MerchantRule struct {
	LastUpdated time.Time
	Merchant    string
	Source      RuleSource
	CategoryID  int
	UseCount    int
}
