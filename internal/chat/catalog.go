package chat

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/k3a/html2text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// CatalogCourse is one course as the assistant sees it
type CatalogCourse struct {
	Title         string  `yaml:"title"`
	Category      string  `yaml:"category"`
	Level         string  `yaml:"level"`
	DurationHours int     `yaml:"durationhours"`
	Price         float64 `yaml:"price"`
	Currency      string  `yaml:"currency"`
	Certification string  `yaml:"certification"`
	Description   string  `yaml:"description"`
}

// LearningPath is an ordered list of course titles
type LearningPath struct {
	Name  string   `yaml:"name"`
	Steps []string `yaml:"steps"`
}

// FAQ is a canned question and answer
type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Catalog is the static knowledge passed to the model
type Catalog struct {
	Organization string          `yaml:"organization"`
	Summary      string          `yaml:"summary"`
	Courses      []CatalogCourse `yaml:"courses"`
	Paths        []LearningPath  `yaml:"paths"`
	FAQs         []FAQ           `yaml:"faqs"`
}

// CourseSource supplies published courses from the course repository
type CourseSource interface {
	Active() ([]entities.Course, error)
}

// LoadCatalog reads the catalog at path, or the embedded one when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	data := embeddedCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.New(err).
				Component("chat").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.New(err).
			Component("chat").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_catalog").
			Build()
	}
	return &c, nil
}

// WithCourses returns a copy of c with the given courses merged in. A
// course whose title already exists replaces the static entry.
func (c *Catalog) WithCourses(courses []entities.Course) *Catalog {
	merged := *c
	merged.Courses = slices.Clone(c.Courses)
	for _, course := range courses {
		entry := CatalogCourse{
			Title:         course.Title,
			Category:      course.Category,
			Level:         course.Level,
			DurationHours: course.DurationHours,
			Price:         course.Price,
			Currency:      course.Currency,
			Description:   course.Description,
		}
		idx := slices.IndexFunc(merged.Courses, func(cc CatalogCourse) bool {
			return strings.EqualFold(cc.Title, course.Title)
		})
		if idx >= 0 {
			if entry.Certification == "" {
				entry.Certification = merged.Courses[idx].Certification
			}
			merged.Courses[idx] = entry
			continue
		}
		merged.Courses = append(merged.Courses, entry)
	}
	return &merged
}

// plainText flattens an HTML fragment to a single line
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(html2text.HTML2Text(s)), " ")
}

// Context renders the catalog as prompt text, courses grouped by category
func (c *Catalog) Context() string {
	var b strings.Builder
	if c.Organization != "" {
		fmt.Fprintf(&b, "Organization: %s\n", c.Organization)
	}
	if c.Summary != "" {
		fmt.Fprintf(&b, "%s\n", plainText(c.Summary))
	}

	titleCaser := cases.Title(language.English) // Casers are stateful, one per call
	byCategory := make(map[string][]CatalogCourse)
	var categories []string
	for _, course := range c.Courses {
		cat := titleCaser.String(strings.TrimSpace(course.Category))
		if cat == "" {
			cat = "General"
		}
		if _, seen := byCategory[cat]; !seen {
			categories = append(categories, cat)
		}
		byCategory[cat] = append(byCategory[cat], course)
	}
	slices.Sort(categories)

	if len(categories) > 0 {
		b.WriteString("\nCourses:\n")
	}
	for _, cat := range categories {
		fmt.Fprintf(&b, "[%s]\n", cat)
		for _, course := range byCategory[cat] {
			b.WriteString("- " + course.Title)
			var facts []string
			if course.Level != "" {
				facts = append(facts, course.Level)
			}
			if course.DurationHours > 0 {
				facts = append(facts, fmt.Sprintf("%dh", course.DurationHours))
			}
			if course.Price > 0 {
				facts = append(facts, strings.TrimSpace(fmt.Sprintf("%g %s", course.Price, course.Currency)))
			}
			if course.Certification != "" {
				facts = append(facts, "prepares for "+course.Certification)
			}
			if len(facts) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(facts, ", "))
			}
			if d := plainText(course.Description); d != "" {
				b.WriteString(": " + d)
			}
			b.WriteByte('\n')
		}
	}

	if len(c.Paths) > 0 {
		b.WriteString("\nLearning paths:\n")
		for _, p := range c.Paths {
			fmt.Fprintf(&b, "- %s: %s\n", p.Name, strings.Join(p.Steps, " -> "))
		}
	}
	if len(c.FAQs) > 0 {
		b.WriteString("\nFAQ:\n")
		for _, f := range c.FAQs {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", f.Question, plainText(f.Answer))
		}
	}
	return b.String()
}
