// Package course holds the static course catalog for the SMU master's
// program. The catalog is configuration, not synchronized data: all course
// codes belong to the IS department, which is a known domain constraint.
package course

import "fmt"

// Course describes a single catalog entry.
type Course struct {
	Code        string
	Name        string
	Description string
}

// Catalog is a fixed table of courses keyed by full course code (e.g. "IS621").
type Catalog struct {
	courses map[string]Course
}

// NewCatalog returns the default catalog.
func NewCatalog() *Catalog {
	entries := []Course{
		{"IS621", "Agile and DevSecOps", "This course covers agile methodologies and DevSecOps practices for modern software development."},
		{"IS622", "Cloud Computing and Container Architecture", "This course covers cloud computing platforms and container technologies."},
		{"IS623", "AI and Machine Learning", "This course covers artificial intelligence concepts and machine learning techniques."},
		{"IS624", "Big Data and Analytics", "This course covers big data processing and analytics methodologies."},
		{"IS625", "Software Quality Management", "This course covers software quality assurance and testing methodologies."},
	}
	courses := make(map[string]Course, len(entries))
	for _, c := range entries {
		courses[c.Code] = c
	}
	return &Catalog{courses: courses}
}

// Lookup returns the course for a full code like "IS621".
func (c *Catalog) Lookup(code string) (Course, bool) {
	course, ok := c.courses[code]
	return course, ok
}

// Name returns the human-readable name for a code, or "Unknown Course".
func (c *Catalog) Name(code string) string {
	if course, ok := c.courses[code]; ok {
		return course.Name
	}
	return "Unknown Course"
}

// Info renders the one-paragraph course summary shown to students. Unknown
// codes get a pointer to the course catalog instead of an error.
func (c *Catalog) Info(code string) string {
	course, ok := c.courses[code]
	if !ok {
		return fmt.Sprintf("I don't have information about %s. Please check the SMU course catalog.", code)
	}
	return fmt.Sprintf("%s: %s - %s", course.Code, course.Name, course.Description)
}

// Codes returns all catalog codes. Order is not specified.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.courses))
	for code := range c.courses {
		codes = append(codes, code)
	}
	return codes
}
