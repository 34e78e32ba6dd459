/*
Package config loads server configuration from a YAML file with
environment variable overrides. Every field has a sensible default so
the server starts with no config file at all.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/payroll-engine/engine"
)

type Config struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`

	CadenceToleranceDays int     `yaml:"cadence_tolerance_days"`
	ConsistencyAbs       float64 `yaml:"consistency_abs"`
	ConsistencyRel       float64 `yaml:"consistency_rel"`
	ConsistencyErrorAbs  float64 `yaml:"consistency_error_abs"`
	ConsistencyErrorRel  float64 `yaml:"consistency_error_rel"`

	// Earnings categories counted toward the effective tax rate.
	TaxableCategories []string `yaml:"taxable_categories"`

	// Per-year 401k elective deferral limit overrides. Years absent
	// here fall back to the built-in statutory table.
	Limit401kOverrides map[int]float64 `yaml:"limit_401k_overrides"`
}

// Load reads the YAML file at path (if it exists), applies environment
// overrides, then fills defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	var cfg Config

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		path = envPath
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := envOverrideInt(&cfg.Port, "PORT"); err != nil {
		return Config{}, err
	}
	envOverride(&cfg.DBPath, "DB_PATH")
	if err := envOverrideInt(&cfg.CadenceToleranceDays, "CADENCE_TOLERANCE_DAYS"); err != nil {
		return Config{}, err
	}
	if err := envOverrideFloat(&cfg.ConsistencyAbs, "CONSISTENCY_ABS"); err != nil {
		return Config{}, err
	}
	if err := envOverrideFloat(&cfg.ConsistencyRel, "CONSISTENCY_REL"); err != nil {
		return Config{}, err
	}
	if err := envOverrideFloat(&cfg.ConsistencyErrorAbs, "CONSISTENCY_ERROR_ABS"); err != nil {
		return Config{}, err
	}
	if err := envOverrideFloat(&cfg.ConsistencyErrorRel, "CONSISTENCY_ERROR_REL"); err != nil {
		return Config{}, err
	}
	if cats := os.Getenv("TAXABLE_CATEGORIES"); cats != "" {
		cfg.TaxableCategories = nil
		for _, c := range strings.Split(cats, ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				cfg.TaxableCategories = append(cfg.TaxableCategories, c)
			}
		}
	}

	cfg.applyDefaults()

	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.CadenceToleranceDays < 1 {
		return Config{}, fmt.Errorf("invalid cadence_tolerance_days %d: must be >= 1", cfg.CadenceToleranceDays)
	}
	if cfg.ConsistencyAbs < 0 || cfg.ConsistencyRel < 0 ||
		cfg.ConsistencyErrorAbs < 0 || cfg.ConsistencyErrorRel < 0 {
		return Config{}, fmt.Errorf("consistency tolerances must be non-negative")
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := engine.DefaultTolerances()
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DBPath == "" {
		c.DBPath = "./payroll.db"
	}
	if c.CadenceToleranceDays == 0 {
		c.CadenceToleranceDays = def.CadenceToleranceDays
	}
	if c.ConsistencyAbs == 0 {
		c.ConsistencyAbs = def.ConsistencyAbs.InexactFloat64()
	}
	if c.ConsistencyRel == 0 {
		c.ConsistencyRel = def.ConsistencyRel.InexactFloat64()
	}
	if c.ConsistencyErrorAbs == 0 {
		c.ConsistencyErrorAbs = def.ConsistencyErrorAbs.InexactFloat64()
	}
	if c.ConsistencyErrorRel == 0 {
		c.ConsistencyErrorRel = def.ConsistencyErrorRel.InexactFloat64()
	}
	if len(c.TaxableCategories) == 0 {
		c.TaxableCategories = []string{
			string(engine.CategoryRegular),
			string(engine.CategoryBonus),
			string(engine.CategoryStockVest),
		}
	}
}

// Tolerances converts the float config values into the decimal form the
// engine expects.
func (c Config) Tolerances() engine.Tolerances {
	return engine.Tolerances{
		CadenceToleranceDays: c.CadenceToleranceDays,
		ConsistencyAbs:       decimal.NewFromFloat(c.ConsistencyAbs),
		ConsistencyRel:       decimal.NewFromFloat(c.ConsistencyRel),
		ConsistencyErrorAbs:  decimal.NewFromFloat(c.ConsistencyErrorAbs),
		ConsistencyErrorRel:  decimal.NewFromFloat(c.ConsistencyErrorRel),
	}
}

// Taxable returns the configured taxable categories as engine types.
func (c Config) Taxable() []engine.Category {
	out := make([]engine.Category, 0, len(c.TaxableCategories))
	for _, cat := range c.TaxableCategories {
		out = append(out, engine.Category(cat))
	}
	return out
}

// Limit401kFor resolves the deferral limit for a year, preferring a
// config override over the built-in table.
func (c Config) Limit401kFor(year int, fallback func(int) (decimal.Decimal, int, bool)) decimal.Decimal {
	if v, ok := c.Limit401kOverrides[year]; ok {
		return decimal.NewFromFloat(v)
	}
	limit, _, _ := fallback(year)
	return limit
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
