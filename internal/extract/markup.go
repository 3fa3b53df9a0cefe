package extract

import "github.com/JakeFAU/profile-screener/internal/profile"

// Section headings matched against h2/h3 text.
const (
	HeadingAbout           = "About"
	HeadingExperience      = "Experience"
	HeadingEducation       = "Education"
	HeadingSkills          = "Skills"
	HeadingRecommendations = "Recommendations"
)

// Rules bundles every selector the extractor uses. DefaultRules reflects the
// markup seen in the wild; tests and callers may supply their own.
type Rules struct {
	SectionHeadings string

	Name     Field
	Headline Field
	Location Field
	Summary  Field

	ExperienceItems ItemSelector
	Title           Field
	Company         Field
	Duration        Field

	EducationItems ItemSelector
	School         Field
	Degree         Field
	Years          Field

	Skills         ListField
	ExpandedSkills ListField
	SkillsExpand   []string
}

// DefaultRules returns the selector set for current and legacy profile markup.
func DefaultRules() Rules {
	return Rules{
		SectionHeadings: "section h2, section h3",
		Name: Field{
			Name:    "name",
			Default: profile.NotFound,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: ".text-heading-xlarge"},
				{Variant: VariantLegacy, Selector: ".pv-top-card-section__name"},
				{Variant: VariantGenerated, Selector: `[data-generated-cea-title="name"]`},
			},
		},
		Headline: Field{
			Name:    "headline",
			Default: profile.NotFound,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: ".text-body-medium"},
				{Variant: VariantLegacy, Selector: ".pv-top-card-section__headline"},
				{Variant: VariantGenerated, Selector: `[data-generated-cea-line1="headline"]`},
			},
		},
		Location: Field{
			Name:    "location",
			Default: profile.NotFound,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: ".text-body-small.inline.t-black--light.break-words"},
				{Variant: VariantLegacy, Selector: ".pv-top-card-section__location"},
				{Variant: VariantGenerated, Selector: `[data-generated-cea-line2="location"]`},
			},
		},
		Summary: Field{
			Name:    "summary",
			Default: profile.NoSummary,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: `.inline-show-more-text span[aria-hidden="true"]`},
				{Variant: VariantCurrent, Selector: ".display-flex.ph5.pv3 div"},
				{Variant: VariantLegacy, Selector: ".pv-about__summary-text"},
			},
		},
		ExperienceItems: ItemSelector{Rules: []Rule{
			{Variant: VariantCurrent, Selector: "li.artdeco-list__item"},
			{Variant: VariantCurrent, Selector: "li.pvs-list__paged-list-item"},
			{Variant: VariantLegacy, Selector: ".pv-entity__position-group"},
			{Variant: VariantLegacy, Selector: ".pv-position-entity"},
		}},
		Title: Field{
			Name:    "title",
			Default: profile.UnknownRole,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: `span.mr1.t-bold span[aria-hidden="true"]`},
				{Variant: VariantCurrent, Selector: "span.mr1.t-bold"},
				{Variant: VariantLegacy, Selector: ".pv-entity__summary-info h3"},
				{Variant: VariantGenerated, Selector: `[data-field="title"]`},
			},
		},
		Company: Field{
			Name:    "company",
			Default: profile.UnknownCompany,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: `span.t-14.t-normal:not(.t-black--light) span[aria-hidden="true"]`},
				{Variant: VariantCurrent, Selector: "span.t-14.t-normal:not(.t-black--light)"},
				{Variant: VariantLegacy, Selector: ".pv-entity__secondary-title"},
				{Variant: VariantGenerated, Selector: `[data-field="company_name"]`},
			},
		},
		Duration: Field{
			Name:    "duration",
			Default: profile.UnknownDuration,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: `span.t-14.t-normal.t-black--light span[aria-hidden="true"]`},
				{Variant: VariantCurrent, Selector: "span.t-14.t-normal.t-black--light"},
				{Variant: VariantLegacy, Selector: ".pv-entity__date-range span:nth-child(2)"},
				{Variant: VariantGenerated, Selector: `[data-field="date_range"]`},
			},
		},
		EducationItems: ItemSelector{Rules: []Rule{
			{Variant: VariantCurrent, Selector: "li.artdeco-list__item"},
			{Variant: VariantCurrent, Selector: "li.pvs-list__paged-list-item"},
			{Variant: VariantLegacy, Selector: ".pv-education-entity"},
		}},
		School: Field{
			Name:    "school",
			Default: profile.UnknownSchool,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: `div.t-bold span[aria-hidden="true"]`},
				{Variant: VariantCurrent, Selector: "div.t-bold"},
				{Variant: VariantLegacy, Selector: ".pv-entity__school-name"},
				{Variant: VariantGenerated, Selector: `[data-field="school_name"]`},
			},
		},
		Degree: Field{
			Name:    "degree",
			Default: profile.UnknownDegree,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: `span.t-14.t-normal:not(.t-black--light) span[aria-hidden="true"]`},
				{Variant: VariantCurrent, Selector: "span.t-14.t-normal:not(.t-black--light)"},
				{Variant: VariantLegacy, Selector: ".pv-entity__degree-name span:nth-child(2)"},
				{Variant: VariantGenerated, Selector: `[data-field="degree_name"]`},
			},
		},
		Years: Field{
			Name:    "years",
			Default: profile.UnknownYears,
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: `span.t-14.t-normal.t-black--light span[aria-hidden="true"]`},
				{Variant: VariantCurrent, Selector: "span.t-14.t-normal.t-black--light"},
				{Variant: VariantLegacy, Selector: ".pv-entity__dates span:nth-child(2)"},
				{Variant: VariantGenerated, Selector: `[data-field="date_range"]`},
			},
		},
		Skills: ListField{
			Name: "skills",
			Rules: []Rule{
				{Variant: VariantCurrent, Selector: "span.display-block.t-black--light.t-14"},
				{Variant: VariantCurrent, Selector: `li.pvs-list__paged-list-item div.t-bold span[aria-hidden="true"]`},
				{Variant: VariantLegacy, Selector: ".pv-skill-category-entity__name"},
				{Variant: VariantGenerated, Selector: `[data-field="skill_name"]`},
			},
		},
		ExpandedSkills: ListField{
			Name: "expanded_skills",
			Rules: []Rule{
				{Variant: VariantLegacy, Selector: ".pv-skill-category-entity__name"},
				{Variant: VariantCurrent, Selector: ".pvs-entity--padded"},
			},
		},
		SkillsExpand: []string{
			"button.pv-skills-section__additional-skills",
			".pvs-list__footer-action",
		},
	}
}
