// Package entity extracts structured values from free text with a fixed set
// of regular expressions.
package entity

import (
	"regexp"

	"github.com/smuassist/learnmate/course"
)

// Entity type keys produced by the extractor.
const (
	TypeCourseCode = "course_code"
	TypeCourseName = "course_name"
	TypeDate       = "date"
	TypeTime       = "time"
	TypeEmail      = "email"
	TypePercentage = "percentage"
	TypeNumber     = "number"
)

type pattern struct {
	entityType string
	re         *regexp.Regexp
}

// Extractor applies regex patterns per entity type over the whole input.
// Absence of a match is a normal empty result, not an error.
type Extractor struct {
	patterns []pattern
	catalog  *course.Catalog
}

// NewExtractor creates an extractor backed by the given course catalog.
// Patterns with a capture group yield the captured text, so course codes come
// back as bare digits ("621" from "IS 621").
func NewExtractor(catalog *course.Catalog) *Extractor {
	return &Extractor{
		catalog: catalog,
		patterns: []pattern{
			{TypeCourseCode, regexp.MustCompile(`(?i)IS\s*(\d{3})`)},
			{TypeDate, regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)},
			{TypeTime, regexp.MustCompile(`(\d{1,2}:\d{2}(?:\s*[aApP][mM])?)`)},
			{TypeEmail, regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)},
			{TypePercentage, regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)},
			{TypeNumber, regexp.MustCompile(`\b(\d+)\b`)},
		},
	}
}

// Extract returns a mapping from entity type to the ordered raw matches found
// in text. An entity type is present only if at least one match exists.
// Course-code hits additionally derive course_name entries from the catalog;
// codes with no catalog entry are silently skipped.
func (e *Extractor) Extract(text string) map[string][]string {
	result := make(map[string][]string)

	for _, p := range e.patterns {
		matches := p.re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		values := make([]string, 0, len(matches))
		for _, m := range matches {
			values = append(values, m[1])
		}
		result[p.entityType] = values
	}

	if codes, ok := result[TypeCourseCode]; ok {
		var names []string
		for _, digits := range codes {
			if c, found := e.catalog.Lookup("IS" + digits); found {
				names = append(names, c.Name)
			}
		}
		if len(names) > 0 {
			result[TypeCourseName] = names
		}
	}

	return result
}
