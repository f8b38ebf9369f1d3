// Package normalize canonicalizes the noisy identifiers that reach the
// engine: order IDs mangled into scientific notation by spreadsheet
// round-trips, partial client codes missing the institutional prefix, and
// free-text company names standing in for exchange symbols.
package normalize

import (
	"strconv"
	"strings"

	"github.com/neowealth/tradesurveil/internal/config"
)

// Normalizer resolves raw identifiers against an immutable snapshot of
// the configured tables. Every method fails closed: input that cannot be
// canonicalized passes through unchanged.
type Normalizer struct {
	canonicalPrefix string
	prefixRules     []config.PrefixRule
	digitRule       bool
	symbolAliases   map[string]string
}

// New builds a Normalizer from the normalization config. The alias map is
// copied with folded keys so later config mutation cannot leak into a run.
func New(cfg config.Normalization) *Normalizer {
	aliases := make(map[string]string, len(cfg.SymbolAliases))
	for k, v := range cfg.SymbolAliases {
		aliases[foldSymbol(k)] = strings.ToUpper(strings.TrimSpace(v))
	}
	return &Normalizer{
		canonicalPrefix: strings.ToUpper(cfg.CanonicalPrefix),
		prefixRules:     append([]config.PrefixRule(nil), cfg.PrefixRules...),
		digitRule:       cfg.DigitRule,
		symbolAliases:   aliases,
	}
}

// OrderID renders float-like and scientific-notation order IDs as the
// shortest exact integer string: "2.509e13" -> "25090000000000",
// "105897.0" -> "105897". Anything unparseable passes through.
func (n *Normalizer) OrderID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	// Not numeric after all; at least strip a float-render tail.
	return strings.TrimSuffix(s, ".0")
}

// ClientCode maps partial client codes onto the canonical institutional
// form: "EOWM00542" and "WM00542" -> "NEOWM00542", "05523" -> "NEO05523".
// Codes already carrying the canonical prefix, and codes matching no
// rule, pass through; downstream matching reports the latter as
// "client code not found" rather than guessing.
func (n *Normalizer) ClientCode(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" || n.canonicalPrefix == "" {
		return code
	}
	if strings.HasPrefix(code, n.canonicalPrefix) {
		return code
	}
	for _, rule := range n.prefixRules {
		if strings.HasPrefix(code, strings.ToUpper(rule.From)) {
			return strings.ToUpper(rule.To) + code[len(rule.From):]
		}
	}
	if n.digitRule && isDigits(code) {
		return n.canonicalPrefix + code
	}
	return code
}

// Symbol resolves company names and phrase variants to canonical exchange
// symbols via the alias table. Unmapped symbols are returned upper-cased
// with whitespace collapsed so comparison stays exact-string-safe.
func (n *Normalizer) Symbol(raw string) string {
	folded := foldSymbol(raw)
	if canonical, ok := n.symbolAliases[folded]; ok {
		return canonical
	}
	return folded
}

func foldSymbol(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
