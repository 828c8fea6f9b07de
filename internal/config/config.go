// Package config holds the tunable knobs of the correlation engine:
// matcher weights and thresholds, variance bands, activity staleness
// rules, and storage paths. Defaults are compiled in; a config file and
// environment variables overlay them through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// MatchWeights are the relative weights of the matcher's composite score
// terms. When a signal is unavailable for an entity its weight degrades
// to zero and the rest are renormalized, so the weights need not sum to
// one here.
type MatchWeights struct {
	Name        float64
	Category    float64
	Quantity    float64
	DomainBonus float64
}

// MatchThresholds are the confidence cut-offs for auto-acceptance and
// manual review. Their business derivation is undocumented upstream, so
// they live in configuration rather than code.
type MatchThresholds struct {
	AutoAccept   float64
	ManualReview float64
}

// VarianceBands classify the primary-pair variance of a reconciliation,
// in absolute percent.
type VarianceBands struct {
	Excellent  float64
	Good       float64
	Acceptable float64
}

// CategoryRule is the declared per-business-category schema. New
// categories are registered explicitly at startup instead of being
// discovered by iterating loosely-typed documents.
type CategoryRule struct {
	Name      string
	StaleDays int
}

// Activity configures the activity classifier.
type Activity struct {
	categoryRules    map[string]CategoryRule
	LookbackDays     int
	DefaultStaleDays int
}

// RegisterCategory declares the stale threshold for a business category.
// Registering the same category twice is an error to catch copy-paste
// config mistakes early.
func (a *Activity) RegisterCategory(rule CategoryRule) error {
	if rule.Name == "" {
		return fmt.Errorf("category rule missing name")
	}
	if rule.StaleDays <= 0 {
		return fmt.Errorf("category %q: stale days must be positive, got %d", rule.Name, rule.StaleDays)
	}
	key := strings.ToLower(rule.Name)
	if a.categoryRules == nil {
		a.categoryRules = make(map[string]CategoryRule)
	}
	if _, exists := a.categoryRules[key]; exists {
		return fmt.Errorf("category %q registered twice", rule.Name)
	}
	a.categoryRules[key] = rule
	return nil
}

// StaleDaysFor returns the stale threshold for a business category,
// falling back to the documented default when the category has no
// registered rule.
func (a *Activity) StaleDaysFor(category string) int {
	if rule, ok := a.categoryRules[strings.ToLower(category)]; ok {
		return rule.StaleDays
	}
	return a.DefaultStaleDays
}

// Config is the full engine configuration.
type Config struct {
	DatabasePath string
	Weights      MatchWeights
	Thresholds   MatchThresholds
	Bands        VarianceBands
	Activity     Activity
	BatchSize    int
	AlternateCap int
}

// Default returns the documented default configuration.
func Default() Config {
	cfg := Config{
		Weights: MatchWeights{
			Name:        0.40,
			Category:    0.25,
			Quantity:    0.20,
			DomainBonus: 0.15,
		},
		Thresholds: MatchThresholds{
			AutoAccept:   80,
			ManualReview: 50,
		},
		Bands: VarianceBands{
			Excellent:  5,
			Good:       10,
			Acceptable: 15,
		},
		Activity: Activity{
			LookbackDays:     90,
			DefaultStaleDays: 30,
		},
		BatchSize:    500,
		AlternateCap: 5,
	}
	// Fast-turning categories go stale sooner than the general default.
	_ = cfg.Activity.RegisterCategory(CategoryRule{Name: "resale", StaleDays: 14})
	_ = cfg.Activity.RegisterCategory(CategoryRule{Name: "pack", StaleDays: 14})
	return cfg
}

// Load builds the configuration from viper, starting from the defaults
// and applying whatever the config file or flags override.
func Load() (Config, error) {
	cfg := Default()

	if v := viper.GetString("database.path"); v != "" {
		cfg.DatabasePath = ExpandPath(v)
	}
	if viper.IsSet("match.weights.name") {
		cfg.Weights.Name = viper.GetFloat64("match.weights.name")
	}
	if viper.IsSet("match.weights.category") {
		cfg.Weights.Category = viper.GetFloat64("match.weights.category")
	}
	if viper.IsSet("match.weights.quantity") {
		cfg.Weights.Quantity = viper.GetFloat64("match.weights.quantity")
	}
	if viper.IsSet("match.weights.domain_bonus") {
		cfg.Weights.DomainBonus = viper.GetFloat64("match.weights.domain_bonus")
	}
	if viper.IsSet("match.thresholds.auto_accept") {
		cfg.Thresholds.AutoAccept = viper.GetFloat64("match.thresholds.auto_accept")
	}
	if viper.IsSet("match.thresholds.manual_review") {
		cfg.Thresholds.ManualReview = viper.GetFloat64("match.thresholds.manual_review")
	}
	if viper.IsSet("reconcile.bands.excellent") {
		cfg.Bands.Excellent = viper.GetFloat64("reconcile.bands.excellent")
	}
	if viper.IsSet("reconcile.bands.good") {
		cfg.Bands.Good = viper.GetFloat64("reconcile.bands.good")
	}
	if viper.IsSet("reconcile.bands.acceptable") {
		cfg.Bands.Acceptable = viper.GetFloat64("reconcile.bands.acceptable")
	}
	if viper.IsSet("activity.lookback_days") {
		cfg.Activity.LookbackDays = viper.GetInt("activity.lookback_days")
	}
	if viper.IsSet("activity.default_stale_days") {
		cfg.Activity.DefaultStaleDays = viper.GetInt("activity.default_stale_days")
	}
	if viper.IsSet("engine.batch_size") {
		cfg.BatchSize = viper.GetInt("engine.batch_size")
	}

	// Per-category stale thresholds: activity.categories is a map of
	// category name to stale days in the config file.
	for name, days := range viper.GetStringMap("activity.categories") {
		staleDays, ok := toInt(days)
		if !ok {
			return cfg, fmt.Errorf("activity.categories.%s: expected integer stale days, got %T", name, days)
		}
		if err := cfg.Activity.RegisterCategory(CategoryRule{Name: name, StaleDays: staleDays}); err != nil {
			// Config overrides replace the built-in defaults for the
			// same category.
			cfg.Activity.categoryRules[strings.ToLower(name)] = CategoryRule{Name: name, StaleDays: staleDays}
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Thresholds.AutoAccept <= c.Thresholds.ManualReview {
		return fmt.Errorf("auto-accept threshold %.1f must exceed manual-review threshold %.1f",
			c.Thresholds.AutoAccept, c.Thresholds.ManualReview)
	}
	if c.Bands.Excellent >= c.Bands.Good || c.Bands.Good >= c.Bands.Acceptable {
		return fmt.Errorf("variance bands must be strictly increasing: %.1f/%.1f/%.1f",
			c.Bands.Excellent, c.Bands.Good, c.Bands.Acceptable)
	}
	if c.Activity.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be positive, got %d", c.Activity.LookbackDays)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
