package models

import (
	"sort"

	"github.com/jmoiron/sqlx/types"
)

// CourseRuleRecord is the stored mapping from a course to its required
// components, with the component list kept as a JSON document.
type CourseRuleRecord struct {
	Course   string         `db:"course"`
	Required types.JSONText `db:"required"`
}

// SectionRecord is a stored section row. Meetings are kept as a JSON document.
type SectionRecord struct {
	Course    string         `db:"course"`
	Component string         `db:"component"`
	Option    string         `db:"option_label"`
	Meetings  types.JSONText `db:"meetings"`
}

// Meeting is one weekly meeting of a section, expressed as wall-clock labels.
type Meeting struct {
	Day   string `json:"day" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Section is one schedulable option of a course component.
type Section struct {
	Course    string    `json:"course" validate:"required"`
	Component string    `json:"component" validate:"required"`
	Option    string    `json:"option" validate:"required"`
	Meetings  []Meeting `json:"meetings" validate:"dive"`
}

// Catalog is an immutable snapshot of course rules and sections. It is built
// once per load and shared read-only across concurrent scheduling requests.
type Catalog struct {
	version          string
	rules            map[string][]string
	sectionsByCourse map[string][]Section
	sectionCount     int
}

// NewCatalog indexes rules and sections into a snapshot. Section order is
// preserved as given; it defines the enumeration order of the engine.
func NewCatalog(version string, rules []CourseRule, sections []Section) *Catalog {
	c := &Catalog{
		version:          version,
		rules:            make(map[string][]string, len(rules)),
		sectionsByCourse: make(map[string][]Section),
	}
	for _, rule := range rules {
		if rule.Course == "" {
			continue
		}
		c.rules[rule.Course] = rule.Required
	}
	for _, section := range sections {
		if section.Course == "" {
			continue
		}
		c.sectionsByCourse[section.Course] = append(c.sectionsByCourse[section.Course], section)
		c.sectionCount++
	}
	return c
}

// CourseRule pairs a course with its ordered required components.
type CourseRule struct {
	Course   string
	Required []string
}

// Version identifies the snapshot, used for cache keying.
func (c *Catalog) Version() string {
	if c == nil {
		return ""
	}
	return c.version
}

// RequiredComponents returns the ordered component names for a course. The
// second return is false for unknown courses.
func (c *Catalog) RequiredComponents(course string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	required, ok := c.rules[course]
	return required, ok
}

// SectionsOf returns the sections of one course component in catalog order.
func (c *Catalog) SectionsOf(course, component string) []Section {
	if c == nil {
		return nil
	}
	var matched []Section
	for _, section := range c.sectionsByCourse[course] {
		if section.Component == component {
			matched = append(matched, section)
		}
	}
	return matched
}

// Courses lists known course codes sorted ascending. Courses from the rule
// mapping win; the section index is the fallback when no rules are loaded.
func (c *Catalog) Courses() (codes []string, source string) {
	if c == nil {
		return nil, "rules"
	}
	if len(c.rules) > 0 {
		for course := range c.rules {
			codes = append(codes, course)
		}
		sort.Strings(codes)
		return codes, "rules"
	}
	for course := range c.sectionsByCourse {
		codes = append(codes, course)
	}
	sort.Strings(codes)
	return codes, "sections"
}

// RuleCount reports how many courses carry requirement rules.
func (c *Catalog) RuleCount() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// SectionCount reports how many sections the snapshot holds.
func (c *Catalog) SectionCount() int {
	if c == nil {
		return 0
	}
	return c.sectionCount
}
