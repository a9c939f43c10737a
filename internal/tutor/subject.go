package tutor

import "strings"

// Subject is the academic subject a student message is classified under.
type Subject string

const (
	SubjectMath    Subject = "Math"
	SubjectScience Subject = "Science"
	SubjectEnglish Subject = "English"
	SubjectHistory Subject = "History"
	SubjectGeneral Subject = "General"
)

// subjectKeywords is checked in order; the first subject with a matching
// keyword wins. Keywords are lower case and matched as substrings, so
// "paragraph" and "biography" classify as Math through "graph".
var subjectKeywords = []struct {
	subject  Subject
	keywords []string
}{
	{SubjectMath, []string{
		"math", "algebra", "geometry", "calculus", "equation", "solve",
		"calculate", "formula", "graph", "derivative", "integral",
		"statistics", "probability", "triangle", "circle", "polynomial",
	}},
	{SubjectScience, []string{
		"science", "biology", "chemistry", "physics", "molecule", "atom",
		"cell", "experiment", "hypothesis", "chemical", "force", "energy",
		"dna", "evolution", "photosynthesis",
	}},
	{SubjectEnglish, []string{
		"english", "literature", "essay", "grammar", "writing", "poem",
		"short story", "character", "theme", "analysis", "sentence",
		"novel", "author",
	}},
	{SubjectHistory, []string{
		"histor", "civil war", "world war", "empire", "monarchy",
		"medieval", "renaissance", "colonial", "treaty", "ancient", "civilization", "century", "timeline",
		"constitution", "dynasty", "president",
	}},
}

// Classify maps message text to a Subject. It depends on the text alone and
// is deterministic, so equal inputs always classify identically.
func Classify(text string) Subject {
	lower := strings.ToLower(text)
	for _, set := range subjectKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.subject
			}
		}
	}
	return SubjectGeneral
}
