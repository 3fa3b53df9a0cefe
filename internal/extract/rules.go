package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Markup variants a rule targets, in resolution order.
const (
	VariantCurrent   = "current"
	VariantLegacy    = "legacy"
	VariantGenerated = "generated"
)

// Rule resolves a value from one markup variant using a CSS selector.
type Rule struct {
	Variant  string
	Selector string
}

// Apply returns the trimmed text of the first element matching the rule
// inside scope that carries any text.
func (r Rule) Apply(scope *goquery.Selection) (string, bool) {
	if scope == nil || r.Selector == "" {
		return "", false
	}
	var out string
	scope.Find(r.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = cleanText(s.Text())
		return out == ""
	})
	return out, out != ""
}

// ApplyAll returns the non-empty trimmed text of every matching element.
func (r Rule) ApplyAll(scope *goquery.Selection) []string {
	if scope == nil || r.Selector == "" {
		return nil
	}
	var out []string
	scope.Find(r.Selector).Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// Field is an ordered list of rules plus the default used when none match.
type Field struct {
	Name    string
	Default string
	Rules   []Rule
}

// Resolve applies the rules in order and returns the first hit.
func (f Field) Resolve(scope *goquery.Selection) string {
	for _, rule := range f.Rules {
		if text, ok := rule.Apply(scope); ok {
			return text
		}
	}
	return f.Default
}

// ListField resolves a sequence of values: the first rule producing at least
// one entry wins.
type ListField struct {
	Name  string
	Rules []Rule
}

// Resolve returns the entries found by the first productive rule.
func (f ListField) Resolve(scope *goquery.Selection) []string {
	for _, rule := range f.Rules {
		if values := rule.ApplyAll(scope); len(values) > 0 {
			return values
		}
	}
	return nil
}

// ItemSelector locates repeated entries (positions, schools) inside a section.
type ItemSelector struct {
	Rules []Rule
}

// Find returns the item elements from the first rule that matches anything.
func (s ItemSelector) Find(scope *goquery.Selection) *goquery.Selection {
	if scope == nil {
		return nil
	}
	for _, rule := range s.Rules {
		if found := scope.Find(rule.Selector); found.Length() > 0 {
			return found
		}
	}
	return nil
}

func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
