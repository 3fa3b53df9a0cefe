// Package scoring turns a normalized profile record into a deterministic
// suitability score and narrative. It has no I/O and no randomness: the same
// record always yields the same result.
package scoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/profile-screener/internal/profile"
)

// Category caps and flat bonuses.
const (
	experiencePerItem   = 5
	experienceCap       = 25
	relevantTitleBonus  = 10
	topEmployerBonus    = 15
	tenurePerItem       = 5
	tenureCap           = 15
	educationPerItem    = 5
	educationCap        = 10
	prestigeBonus       = 10
	relevantDegreeBonus = 10
	skillPerItem        = 1
	skillCap            = 20
	relevantSkillPer    = 2
	relevantSkillCap    = 20
	recommendationPer   = 2
	recommendationCap   = 10
	summaryBonus        = 5
	summaryMinLength    = 100
)

// Band thresholds on the total score.
const (
	excellentThreshold = 80
	strongThreshold    = 60
	basicThreshold     = 40
)

var (
	relevantTitles = []string{
		"developer", "engineer", "programmer", "software",
		"web", "fullstack", "back-end", "front-end",
	}
	topEmployers = []string{
		"google", "microsoft", "amazon", "apple",
		"facebook", "meta", "netflix", "linkedin",
	}
	prestigiousSchools = []string{
		"stanford", "harvard", "mit", "princeton",
		"yale", "berkeley", "oxford", "cambridge",
	}
	relevantDegrees = []string{
		"computer science", "software", "engineering",
		"information technology", "data science",
	}
	relevantSkills = []string{
		"javascript", "typescript", "node.js", "react", "angular", "vue",
		"express", "mongodb", "sql", "python", "java", "c#", "php",
		"ruby", "go", "aws", "azure", "docker", "kubernetes",
	}
)

// Category names in evaluation order.
const (
	CategoryExperience     = "experience_volume"
	CategoryRelevantTitle  = "relevant_title"
	CategoryTopEmployer    = "top_employer"
	CategoryTenure         = "tenure"
	CategoryEducation      = "education_volume"
	CategoryPrestige       = "prestigious_institution"
	CategoryDegree         = "relevant_degree"
	CategorySkills         = "skills_volume"
	CategoryRelevantSkills = "relevant_skills"
	CategoryRecommendation = "recommendations"
	CategorySummary        = "detailed_summary"
)

// CategoryScore is one line of the breakdown.
type CategoryScore struct {
	Name   string
	Points int
	Note   string
}

// Breakdown lists every category in the fixed evaluation order.
type Breakdown struct {
	Categories []CategoryScore
	Notes      []string
}

// Total sums the category points.
func (b Breakdown) Total() int {
	total := 0
	for _, c := range b.Categories {
		total += c.Points
	}
	return total
}

// Points returns the contribution of a single category.
func (b Breakdown) Points(name string) int {
	for _, c := range b.Categories {
		if c.Name == name {
			return c.Points
		}
	}
	return 0
}

// Score computes the total and the narrative analysis for rec.
func Score(rec profile.Record) profile.ScoreResult {
	b := Evaluate(rec)
	total := b.Total()
	parts := append([]string{lead(total)}, b.Notes...)
	return profile.ScoreResult{
		Score:    total,
		Analysis: strings.Join(parts, " "),
	}
}

// Evaluate scores each category independently. Sentinel rows inserted during
// normalization do not count as data.
func Evaluate(rec profile.Record) Breakdown {
	var b Breakdown
	add := func(name string, points int, note string) {
		b.Categories = append(b.Categories, CategoryScore{Name: name, Points: points, Note: note})
		if note != "" {
			b.Notes = append(b.Notes, note)
		}
	}

	experience := realExperience(rec.Experience)
	if len(experience) > 0 {
		add(CategoryExperience, capped(len(experience), experiencePerItem, experienceCap), "")

		hasTitle, hasEmployer := false, false
		tenured := 0
		for _, exp := range experience {
			if containsAny(exp.Title, relevantTitles) {
				hasTitle = true
			}
			if containsAny(exp.Company, topEmployers) {
				hasEmployer = true
			}
			if isLongTerm(exp.Duration) {
				tenured++
			}
		}
		if hasTitle {
			add(CategoryRelevantTitle, relevantTitleBonus, "Has relevant job titles in experience.")
		}
		if hasEmployer {
			add(CategoryTopEmployer, topEmployerBonus, "Has worked at top-tier tech companies.")
		}
		if tenured > 0 {
			add(CategoryTenure, capped(tenured, tenurePerItem, tenureCap),
				fmt.Sprintf("Has %d long-term positions, showing stability.", tenured))
		}
	} else {
		add(CategoryExperience, 0, "No work experience found. This is a significant concern.")
	}

	education := realEducation(rec.Education)
	if len(education) > 0 {
		add(CategoryEducation, capped(len(education), educationPerItem, educationCap), "")

		hasPrestige, hasDegree := false, false
		for _, edu := range education {
			if containsAny(edu.School, prestigiousSchools) {
				hasPrestige = true
			}
			if containsAny(edu.Degree, relevantDegrees) {
				hasDegree = true
			}
		}
		if hasPrestige {
			add(CategoryPrestige, prestigeBonus, "Graduated from a prestigious educational institution.")
		}
		if hasDegree {
			add(CategoryDegree, relevantDegreeBonus, "Has a relevant degree in a technical field.")
		}
	} else {
		add(CategoryEducation, 0, "No formal education found.")
	}

	skills := realSkills(rec.Skills)
	if len(skills) > 0 {
		add(CategorySkills, capped(len(skills), skillPerItem, skillCap), "")

		matching := 0
		for _, skill := range skills {
			if containsAny(skill, relevantSkills) {
				matching++
			}
		}
		if matching > 0 {
			add(CategoryRelevantSkills, capped(matching, relevantSkillPer, relevantSkillCap),
				fmt.Sprintf("Has %d relevant technical skills.", matching))
		}
	} else {
		add(CategorySkills, 0, "No skills listed on profile.")
	}

	if rec.Recommendations > 0 {
		add(CategoryRecommendation, capped(rec.Recommendations, recommendationPer, recommendationCap),
			fmt.Sprintf("Has %d recommendations, indicating good professional relationships.", rec.Recommendations))
	}

	if rec.HasSummary() && utf8.RuneCountInString(rec.Summary) > summaryMinLength {
		add(CategorySummary, summaryBonus, "Has a detailed professional summary.")
	}

	return b
}

// Band returns the short label for a total score.
func Band(total int) string {
	switch {
	case total >= excellentThreshold:
		return "excellent fit"
	case total >= strongThreshold:
		return "strong potential"
	case total >= basicThreshold:
		return "meets basic requirements"
	default:
		return "not a strong match"
	}
}

func lead(total int) string {
	switch Band(total) {
	case "excellent fit":
		return "This candidate appears to be an excellent fit based on their LinkedIn profile."
	case "strong potential":
		return "This candidate shows strong potential and would be worth interviewing."
	case "meets basic requirements":
		return "This candidate meets basic requirements but may need additional screening."
	default:
		return "This candidate does not appear to be a strong match based on their LinkedIn profile."
	}
}

// capped awards per points for each of count items, never more than limit.
// The count is clamped before multiplying so huge counts cannot overflow.
func capped(count, per, limit int) int {
	if count <= 0 || per <= 0 {
		return 0
	}
	if count >= limit/per+1 {
		return limit
	}
	return min(count*per, limit)
}

func containsAny(text string, vocabulary []string) bool {
	lower := strings.ToLower(text)
	for _, term := range vocabulary {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// isLongTerm matches durations that mention years but are not the
// "less than 1 year" phrasing.
func isLongTerm(duration string) bool {
	lower := strings.ToLower(duration)
	return strings.Contains(lower, "year") && !strings.Contains(lower, "less than 1 year")
}

func realExperience(items []profile.ExperienceItem) []profile.ExperienceItem {
	out := make([]profile.ExperienceItem, 0, len(items))
	for _, item := range items {
		if !item.IsPlaceholder() {
			out = append(out, item)
		}
	}
	return out
}

func realEducation(items []profile.EducationItem) []profile.EducationItem {
	out := make([]profile.EducationItem, 0, len(items))
	for _, item := range items {
		if !item.IsPlaceholder() {
			out = append(out, item)
		}
	}
	return out
}

func realSkills(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != profile.NotFound && strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}
