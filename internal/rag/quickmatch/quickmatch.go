// Package quickmatch answers common factual questions straight from chunk
// text with ordered trigger/extractor rules, before ranking runs.
package quickmatch

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/futig/context-rag/internal/entity"
	"gopkg.in/yaml.v3"
)

// ValuePlaceholder is replaced by the extracted value in a rule template
const ValuePlaceholder = "{value}"

// Rule fires when the query contains one of Triggers as a whole word or
// phrase. Pattern must have one capture group holding the value.
type Rule struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
	Pattern  string   `yaml:"pattern"`
	Template string   `yaml:"template"`
}

type Match struct {
	Rule   string
	Answer string
	Chunk  entity.DocumentChunk
}

type compiledRule struct {
	name     string
	triggers []*regexp.Regexp
	pattern  *regexp.Regexp
	template string
}

type Matcher struct {
	rules []compiledRule
}

// DefaultRules cover manufacturer, horsepower and model questions
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "manufacturer",
			Triggers: []string{"manufacturer", "made by"},
			Pattern:  `(?i)\bmanufacturer\b\s*[-:]?\s*([^\n\r.]+)`,
			Template: "The manufacturer is {value}.",
		},
		{
			Name:     "horsepower",
			Triggers: []string{"horsepower", "hp"},
			Pattern:  `(?i)(\d+(?:\.\d+)?)\s*hp\b`,
			Template: "The horsepower is {value} hp.",
		},
		{
			Name:     "model",
			Triggers: []string{"model", "type"},
			Pattern:  `(?i)\bmodel\b\s*[-:]?\s*([^\n\r.]+)`,
			Template: "The model is {value}.",
		},
	}
}

// New compiles rules in order. The first rule that fires and extracts wins.
func New(rules []Rule) (*Matcher, error) {
	m := &Matcher{rules: make([]compiledRule, 0, len(rules))}

	for _, r := range rules {
		if r.Name == "" || len(r.Triggers) == 0 || r.Pattern == "" || r.Template == "" {
			return nil, fmt.Errorf("%w: quick-match rule %q is incomplete", entity.ErrInvalidParameter, r.Name)
		}

		pattern, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile quick-match rule %q: %w", r.Name, err)
		}
		if pattern.NumSubexp() < 1 {
			return nil, fmt.Errorf("%w: quick-match rule %q needs a capture group", entity.ErrInvalidParameter, r.Name)
		}

		cr := compiledRule{
			name:     r.Name,
			pattern:  pattern,
			template: r.Template,
		}
		for _, trig := range r.Triggers {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(trig)) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compile trigger %q of rule %q: %w", trig, r.Name, err)
			}
			cr.triggers = append(cr.triggers, re)
		}

		m.rules = append(m.rules, cr)
	}

	return m, nil
}

// Default returns a matcher with DefaultRules
func Default() *Matcher {
	m, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the answer of the first triggered rule whose pattern is
// found in a chunk. Chunks are scanned in order.
func (m *Matcher) Match(query string, chunks []entity.DocumentChunk) (Match, bool) {
	for _, r := range m.rules {
		if !r.triggered(query) {
			continue
		}

		for _, c := range chunks {
			sub := r.pattern.FindStringSubmatch(c.Content)
			if sub == nil {
				continue
			}

			value := strings.TrimSpace(sub[1])
			if value == "" {
				continue
			}

			return Match{
				Rule:   r.name,
				Answer: strings.ReplaceAll(r.template, ValuePlaceholder, value),
				Chunk:  c,
			}, true
		}
	}

	return Match{}, false
}

func (m *Matcher) Len() int {
	return len(m.rules)
}

func (r compiledRule) triggered(query string) bool {
	for _, t := range r.triggers {
		if t.MatchString(query) {
			return true
		}
	}
	return false
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads extra rules from a YAML document of the form
//
//	rules:
//	  - name: voltage
//	    triggers: [voltage, volts]
//	    pattern: '(?i)(\d+)\s*v\b'
//	    template: "The rated voltage is {value} V."
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quick-match rules: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse quick-match rules: %w", err)
	}

	if len(f.Rules) == 0 {
		return nil, errors.New("quick-match rules file contains no rules")
	}

	return f.Rules, nil
}
