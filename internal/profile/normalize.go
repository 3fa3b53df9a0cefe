package profile

import "strings"

// Normalize applies the post-extraction defaults. Empty experience, education
// and skills collapse to a single sentinel entry; an unresolved name means the
// page did not match the expected structure and yields an ExtractionFailure.
func Normalize(rec Record) (Record, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		rec.Name = NotFound
	}
	if rec.Name == NotFound {
		return rec, NewError(
			KindExtraction,
			"could not scrape the profile data; the profile might be private or the page structure has changed",
			nil,
		)
	}
	if len(rec.Experience) == 0 {
		rec.Experience = []ExperienceItem{{Title: NotFound, Company: NotFound, Duration: NotFound}}
	}
	if len(rec.Education) == 0 {
		rec.Education = []EducationItem{{School: NotFound, Degree: NotFound, Years: NotFound}}
	}
	if len(rec.Skills) == 0 {
		rec.Skills = []string{NotFound}
	}
	if rec.Recommendations < 0 {
		rec.Recommendations = 0
	}
	return rec, nil
}
