// Package detector recognises pages that must not be extracted: security
// challenges and authentication walls.
package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBlockPhrases are matched verbatim against the visible page text.
var DefaultBlockPhrases = []string{
	"Security Verification",
	"CAPTCHA",
	"Please verify",
}

// DefaultAuthWallSelectors mark a page that demands sign-in before showing
// the profile.
var DefaultAuthWallSelectors = []string{
	".authwall-join-form",
	".authentication-outlet",
	".org-login",
}

// Detector applies exact phrase and selector checks. Matching is deliberately
// literal so ordinary profile copy mentioning "verify" does not trip it.
type Detector struct {
	phrases   []string
	authWalls []string
}

// New creates a Detector with the default phrases and auth-wall selectors.
func New() *Detector {
	return NewDetector(DefaultBlockPhrases, DefaultAuthWallSelectors)
}

// NewDetector constructs a Detector from explicit phrase and selector lists.
// Blank entries are dropped.
func NewDetector(phrases, authWalls []string) *Detector {
	return &Detector{
		phrases:   compact(phrases),
		authWalls: compact(authWalls),
	}
}

// IsBlocked reports whether text contains a security-challenge phrase.
// The comparison is case-sensitive.
func (d *Detector) IsBlocked(text string) bool {
	if d == nil || text == "" {
		return false
	}
	for _, phrase := range d.phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// RequiresLogin reports whether doc shows an authentication wall.
func (d *Detector) RequiresLogin(doc *goquery.Document) bool {
	if d == nil {
		return false
	}
	return HasAny(doc, d.authWalls)
}

// HasAny reports whether any selector matches at least one element of doc.
func HasAny(doc *goquery.Document, selectors []string) bool {
	if doc == nil {
		return false
	}
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
