package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the surveillance service. All matching
// tolerances, windows and weights are explicit here rather than buried in
// the engine.
type Config struct {
	Server struct {
		Port int `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	} `yaml:"server"`

	DB struct {
		Path string `yaml:"path" default:"tradesurveil.db" validate:"required"`
	} `yaml:"db"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`

	Matching  Matching      `yaml:"matching"`
	Normalize Normalization `yaml:"normalize"`
}

// Matching groups the engine's decision constants.
type Matching struct {
	Audio AudioMatching `yaml:"audio"`
	Email EmailMatching `yaml:"email"`

	// PriceTolerance is the maximum absolute price difference, in currency
	// units, still treated as an exact price match.
	PriceTolerance float64 `yaml:"price_tolerance" default:"0.05" validate:"gte=0"`

	// QuantityTolerance is the maximum absolute quantity difference still
	// treated as an exact quantity match.
	QuantityTolerance int64 `yaml:"quantity_tolerance" default:"0" validate:"gte=0"`

	// SplitQtyTolerance bounds |sum(group quantities) - instructed
	// quantity| for split-execution grouping.
	SplitQtyTolerance int64 `yaml:"split_qty_tolerance" default:"0" validate:"gte=0"`

	// TypoRatio marks a quantity mismatch as a likely data-entry error
	// when the larger value exceeds the smaller by this factor.
	TypoRatio float64 `yaml:"typo_ratio" default:"100" validate:"gt=1"`
}

type AudioMatching struct {
	// TightWindow extends the call interval on both sides when testing
	// whether an order falls inside it.
	TightWindow time.Duration `yaml:"tight_window" default:"5m" validate:"gt=0"`

	// TightConfidence and FallbackConfidence are the fixed confidence
	// baselines for the two match stages.
	TightConfidence    float64 `yaml:"tight_confidence" default:"90" validate:"gte=0,lte=100"`
	FallbackConfidence float64 `yaml:"fallback_confidence" default:"60" validate:"gte=0,lte=100"`

	// FrequencyWindows narrows the tight window for chatty clients:
	// clients with at least HighOrders orders that day get HighWindow,
	// at least NormalOrders get TightWindow, everyone else LowWindow.
	HighOrders   int           `yaml:"high_orders" default:"8" validate:"gte=0"`
	NormalOrders int           `yaml:"normal_orders" default:"4" validate:"gte=0"`
	HighWindow   time.Duration `yaml:"high_window" default:"2m" validate:"gt=0"`
	LowWindow    time.Duration `yaml:"low_window" default:"10m" validate:"gt=0"`
}

type EmailMatching struct {
	// Rubric weights. Client and side are mandatory: failing either zeroes
	// the whole score.
	ClientPoints   int `yaml:"client_points" default:"100" validate:"gt=0"`
	SidePoints     int `yaml:"side_points" default:"15" validate:"gt=0"`
	SymbolPoints   int `yaml:"symbol_points" default:"20" validate:"gte=0"`
	QuantityPoints int `yaml:"quantity_points" default:"25" validate:"gte=0"`
	PricePoints    int `yaml:"price_points" default:"20" validate:"gte=0"`
	TimePoints     int `yaml:"time_points" default:"20" validate:"gte=0"`

	// CMPPoints is awarded instead of PricePoints when the instruction
	// used the "current market price" sentinel.
	CMPPoints int `yaml:"cmp_points" default:"15" validate:"gte=0"`

	// TimeFullWindow grants full time points; beyond it they decay
	// linearly, reaching zero at TimeZeroWindow.
	TimeFullWindow time.Duration `yaml:"time_full_window" default:"2h" validate:"gt=0"`
	TimeZeroWindow time.Duration `yaml:"time_zero_window" default:"4h" validate:"gt=0"`

	// Confidence bands, in percent.
	PerfectBand float64 `yaml:"perfect_band" default:"100" validate:"gte=0,lte=100"`
	HighBand    float64 `yaml:"high_band" default:"85" validate:"gte=0,lte=100"`
	PartialBand float64 `yaml:"partial_band" default:"60" validate:"gte=0,lte=100"`
}

// Normalization carries the identifier canonicalization tables. The
// engine treats them as an immutable snapshot per run.
type Normalization struct {
	// CanonicalPrefix is the institutional client-code prefix, prepended
	// by the prefix rules below.
	CanonicalPrefix string `yaml:"canonical_prefix" default:"NEO"`

	// PrefixRules rewrites a recognized leading fragment of a client code.
	// Evaluated in order; first hit wins.
	PrefixRules []PrefixRule `yaml:"prefix_rules"`

	// DigitRule, when true, prepends CanonicalPrefix to all-digit codes.
	DigitRule bool `yaml:"digit_rule" default:"true"`

	// SymbolAliases maps free-text company names and phrase variants to
	// canonical exchange symbols. Keys are compared case-insensitively
	// with whitespace collapsed.
	SymbolAliases map[string]string `yaml:"symbol_aliases"`
}

type PrefixRule struct {
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to" validate:"required"`
}

// Load reads, defaults and validates a YAML configuration file.
// ${ENV_VAR} references in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Default returns a config with every field at its default, including the
// default normalization tables.
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		// defaults.Set only fails on a non-pointer; unreachable here.
		panic(err)
	}
	c.Normalize.PrefixRules = []PrefixRule{
		{From: "EOWM", To: "NEOWM"},
		{From: "WM", To: "NEOWM"},
	}
	c.Normalize.SymbolAliases = map[string]string{
		"BLUE JET HEALTHCARE":         "BLUEJET",
		"BLUE JET HEALTHCARE LIMITED": "BLUEJET",
		"ENERGY INFRASTRUCTURE TRUST": "ENERGYINF",
		"ENERGY INVIT":                "ENERGYINF",
		"MANAPPURAM FINANCE LIMITED":  "MANAPPURAM",
		"MANAPPURAM FINANCE LTD":      "MANAPPURAM",
	}
	return c
}

// Validate checks field constraints and cross-field invariants.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Matching.Email.TimeZeroWindow < c.Matching.Email.TimeFullWindow {
		return fmt.Errorf("matching.email: time_zero_window must be >= time_full_window")
	}
	if c.Matching.Audio.FallbackConfidence >= c.Matching.Audio.TightConfidence {
		return fmt.Errorf("matching.audio: fallback_confidence must be below tight_confidence")
	}
	return nil
}
