// Package extract pulls a profile record out of a rendered page. Every field is
// resolved through an ordered list of selector rules (current markup first,
// legacy markup as fallback); sections are found by their heading text rather
// than by class names, which change far more often.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/profile-screener/internal/profile"
)

var recommendationCount = regexp.MustCompile(`(?i)(\d+)\s+recommendation`)

// Extractor applies a Rules set to parsed documents.
type Extractor struct {
	rules Rules
}

// New creates an Extractor using DefaultRules.
func New() *Extractor {
	return NewWithRules(DefaultRules())
}

// NewWithRules creates an Extractor with a custom rule set.
func NewWithRules(rules Rules) *Extractor {
	return &Extractor{rules: rules}
}

// Rules exposes the active rule set.
func (e *Extractor) Rules() Rules {
	return e.rules
}

// Parse builds a goquery document from rendered HTML.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Extract resolves every field from doc. The result is pre-normalization:
// sections that were not found come back empty.
func (e *Extractor) Extract(doc *goquery.Document) profile.Record {
	root := doc.Selection
	rec := profile.Record{
		Name:     e.rules.Name.Resolve(root),
		Headline: e.rules.Headline.Resolve(root),
		Location: e.rules.Location.Resolve(root),
		Summary:  profile.NoSummary,
	}

	if about := e.Section(doc, HeadingAbout); about != nil {
		rec.Summary = e.rules.Summary.Resolve(about)
	}
	if section := e.Section(doc, HeadingExperience); section != nil {
		rec.Experience = e.experience(section)
	}
	if section := e.Section(doc, HeadingEducation); section != nil {
		rec.Education = e.education(section)
	}
	if section := e.Section(doc, HeadingSkills); section != nil {
		rec.Skills = e.rules.Skills.Resolve(section)
	}
	if section := e.Section(doc, HeadingRecommendations); section != nil {
		rec.Recommendations = CountRecommendations(section.Text())
	}
	return rec
}

// ExpandedSkills re-reads skills after the expand control has been used. It
// searches the whole document because the expanded list may render outside
// the original section.
func (e *Extractor) ExpandedSkills(doc *goquery.Document) []string {
	return e.rules.ExpandedSkills.Resolve(doc.Selection)
}

// SkillsExpandControl returns the first expand selector present in doc.
func (e *Extractor) SkillsExpandControl(doc *goquery.Document) (string, bool) {
	for _, sel := range e.rules.SkillsExpand {
		if doc.Find(sel).Length() > 0 {
			return sel, true
		}
	}
	return "", false
}

// Section finds the first heading containing text and returns its enclosing
// section, or nil when the page has no such section.
func (e *Extractor) Section(doc *goquery.Document, heading string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find(e.rules.SectionHeadings).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(h.Text(), heading) {
			return true
		}
		if section := h.Closest("section"); section.Length() > 0 {
			found = section
			return false
		}
		return true
	})
	return found
}

func (e *Extractor) experience(section *goquery.Selection) []profile.ExperienceItem {
	items := e.rules.ExperienceItems.Find(section)
	if items == nil {
		return nil
	}
	out := make([]profile.ExperienceItem, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		out = append(out, profile.ExperienceItem{
			Title:    e.rules.Title.Resolve(item),
			Company:  e.rules.Company.Resolve(item),
			Duration: e.rules.Duration.Resolve(item),
		})
	})
	return out
}

func (e *Extractor) education(section *goquery.Selection) []profile.EducationItem {
	items := e.rules.EducationItems.Find(section)
	if items == nil {
		return nil
	}
	out := make([]profile.EducationItem, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		out = append(out, profile.EducationItem{
			School: e.rules.School.Resolve(item),
			Degree: e.rules.Degree.Resolve(item),
			Years:  e.rules.Years.Resolve(item),
		})
	})
	return out
}

// CountRecommendations parses "<n> recommendation(s)" out of section text.
// Anything unparseable counts as zero.
func CountRecommendations(text string) int {
	match := recommendationCount.FindStringSubmatch(text)
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
