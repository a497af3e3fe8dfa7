package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/apigovern/gatekeeper/domain"
)

const (
	deduplicationRuleName        = "api-deduplication-check"
	deduplicationRuleDescription = "Checks for duplicate APIs using MinHash and LSH similarity detection"
)

// rulesetDocument is the YAML shape of a gatekeeper ruleset.
type rulesetDocument struct {
	Enabled             *bool                `yaml:"enabled"`
	SimilarityThreshold *float64             `yaml:"similarity_threshold"`
	NumHashFunctions    *int                 `yaml:"num_hash_functions"`
	NumBands            *int                 `yaml:"num_bands"`
	Rules               map[string]ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
}

// RulesetConfigLoader parses ruleset documents into engine configuration and
// governance rules.
type RulesetConfigLoader struct{}

// NewRulesetConfigLoader creates a ruleset loader.
func NewRulesetConfigLoader() *RulesetConfigLoader {
	return &RulesetConfigLoader{}
}

// LoadFile reads and parses a ruleset file.
func (l *RulesetConfigLoader) LoadFile(path string) (domain.RulesetConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RulesetConfig{}, domain.NewConfigError(fmt.Sprintf("failed to read ruleset file: %s", path), err)
	}
	return l.Parse(content)
}

// Parse validates a ruleset document and returns the engine configuration.
// The loader rejects out-of-range thresholds; the similarity engine itself
// clamps at check time, so a ruleset that bypasses the loader still behaves.
func (l *RulesetConfigLoader) Parse(content []byte) (domain.RulesetConfig, error) {
	doc, err := parseRulesetDocument(content)
	if err != nil {
		return domain.RulesetConfig{}, err
	}

	cfg := domain.DefaultRulesetConfig()
	if doc.Enabled != nil {
		cfg.Enabled = *doc.Enabled
	}
	if doc.SimilarityThreshold != nil {
		threshold := *doc.SimilarityThreshold
		if threshold < domain.MinSimilarityThreshold || threshold > domain.MaxSimilarityThreshold {
			return domain.RulesetConfig{}, domain.NewConfigError(
				fmt.Sprintf("similarity_threshold must be between %.2f and %.2f, got %.2f",
					domain.MinSimilarityThreshold, domain.MaxSimilarityThreshold, threshold), nil)
		}
		cfg.SimilarityThreshold = threshold
	}
	if doc.NumHashFunctions != nil && *doc.NumHashFunctions > 0 {
		cfg.NumHashFunctions = *doc.NumHashFunctions
	}
	if doc.NumBands != nil && *doc.NumBands > 0 {
		cfg.NumBands = *doc.NumBands
	}
	return cfg, nil
}

// ExtractRules turns a ruleset document into governance rules: one
// deduplication rule, plus one rule per entry of the optional rules mapping.
func (l *RulesetConfigLoader) ExtractRules(content []byte) ([]domain.Rule, error) {
	cfg, err := l.Parse(content)
	if err != nil {
		return nil, err
	}
	doc, err := parseRulesetDocument(content)
	if err != nil {
		return nil, err
	}

	rules := []domain.Rule{{
		ID:   uuid.NewString(),
		Name: deduplicationRuleName,
		Description: fmt.Sprintf("%s (threshold: %.0f%%)",
			deduplicationRuleDescription, cfg.SimilarityThreshold*100),
		Severity:  domain.SeverityError,
		Threshold: cfg.SimilarityThreshold,
	}}

	for name, entry := range doc.Rules {
		rules = append(rules, domain.Rule{
			ID:          uuid.NewString(),
			Name:        name,
			Description: entry.Description,
			Severity:    parseSeverity(entry.Severity),
		})
	}
	return rules, nil
}

func parseRulesetDocument(content []byte) (rulesetDocument, error) {
	var doc rulesetDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return rulesetDocument{}, domain.NewConfigError("failed to parse ruleset content", err)
	}
	return doc, nil
}

func parseSeverity(s string) domain.RuleSeverity {
	switch strings.ToLower(s) {
	case "error":
		return domain.SeverityError
	case "info":
		return domain.SeverityInfo
	default:
		return domain.SeverityWarning
	}
}
