package routing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Label identifies the responder a request is routed to.
type Label string

const (
	// LabelLocal routes to the local Node.js responder.
	LabelLocal Label = "local"
	// LabelCerebras routes to the Cerebras analysis responder.
	LabelCerebras Label = "cerebras"
)

// DefaultRule names the outcome when no rule matched.
const DefaultRule = "default"

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rule maps an ordered keyword set to a label.
type Rule struct {
	Name     string   `yaml:"name" json:"name"`
	Label    Label    `yaml:"label" json:"label"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// RuleSet is the ordered classifier table.
type RuleSet struct {
	DefaultLabel Label  `yaml:"default_label" json:"default_label"`
	Rules        []Rule `yaml:"rules" json:"rules"`
}

// Result captures a single classification outcome.
type Result struct {
	Label         Label  `json:"label"`
	Rule          string `json:"rule"`
	Keyword       string `json:"keyword,omitempty"`
	Justification string `json:"justification"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() (RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a YAML or JSON rule table from disk.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return RuleSet{}, fmt.Errorf("read routing rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and normalizes a rule table. JSON input is accepted as
// it is a subset of YAML.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("unmarshal routing rules: %w", err)
	}
	rs.DefaultLabel = Label(strings.TrimSpace(string(rs.DefaultLabel)))
	if rs.DefaultLabel == "" {
		rs.DefaultLabel = LabelLocal
	}
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		rule.Name = strings.TrimSpace(rule.Name)
		rule.Label = Label(strings.TrimSpace(string(rule.Label)))
		for j, kw := range rule.Keywords {
			rule.Keywords[j] = normalizeKeyword(kw)
		}
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Validate ensures every rule can match something and names a label.
func (rs RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return errors.New("routing rules missing")
	}
	for i, rule := range rs.Rules {
		if rule.Name == "" {
			return fmt.Errorf("routing rule %d: name required", i)
		}
		if rule.Label == "" {
			return fmt.Errorf("routing rule %q: label required", rule.Name)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("routing rule %q: keywords required", rule.Name)
		}
		for _, kw := range rule.Keywords {
			if kw == "" {
				return fmt.Errorf("routing rule %q: empty keyword", rule.Name)
			}
		}
	}
	return nil
}

// Classifier evaluates messages against an immutable rule table.
type Classifier struct {
	rules        []Rule
	defaultLabel Label
}

// NewClassifier constructs a classifier from a normalized, validated copy of rs.
func NewClassifier(rs RuleSet) (*Classifier, error) {
	rules := make([]Rule, len(rs.Rules))
	for i, rule := range rs.Rules {
		keywords := make([]string, len(rule.Keywords))
		for j, kw := range rule.Keywords {
			keywords[j] = normalizeKeyword(kw)
		}
		rules[i] = Rule{Name: rule.Name, Label: rule.Label, Keywords: keywords}
	}
	normalized := RuleSet{DefaultLabel: rs.DefaultLabel, Rules: rules}
	if err := normalized.Validate(); err != nil {
		return nil, err
	}
	defaultLabel := rs.DefaultLabel
	if defaultLabel == "" {
		defaultLabel = LabelLocal
	}
	return &Classifier{rules: rules, defaultLabel: defaultLabel}, nil
}

// Classify returns the label of the first rule with a keyword contained in
// the lower-cased message, or the default label.
func (c *Classifier) Classify(message string) Result {
	lower := strings.ToLower(message)
	result := Result{Label: c.defaultLabel, Rule: DefaultRule}
	for _, rule := range c.rules {
		if kw, ok := FirstMatch(lower, rule.Keywords); ok {
			result = Result{Label: rule.Label, Rule: rule.Name, Keyword: kw}
			break
		}
	}
	result.Justification = fmt.Sprintf("Routed to %s agent based on request analysis", result.Label)

	logrus.WithFields(logrus.Fields{
		"label":   result.Label,
		"rule":    result.Rule,
		"keyword": result.Keyword,
	}).Info("devduck routing request")
	return result
}

// Rules returns a copy of the rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, rule := range c.rules {
		out[i] = Rule{Name: rule.Name, Label: rule.Label, Keywords: append([]string(nil), rule.Keywords...)}
	}
	return out
}

// DefaultLabel reports the label used when nothing matches.
func (c *Classifier) DefaultLabel() Label {
	return c.defaultLabel
}

// FirstMatch reports the first keyword contained in s. Both sides are
// compared as given; callers lower-case s.
func FirstMatch(s string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return kw, true
		}
	}
	return "", false
}

func normalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}
