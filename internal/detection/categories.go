package detection

import (
	"fmt"
	"strings"
)

// Category groups detector labels that count as the same kind of prohibited
// object. A label belongs to the first category with a substring it contains.
type Category struct {
	Name       string   `toml:"name" json:"name"`
	Substrings []string `toml:"substrings" json:"substrings"`
	Threshold  float64  `toml:"threshold" json:"threshold"`
	Phone      bool     `toml:"phone" json:"phone"`
}

// DefaultCategories returns the category table used when none is configured.
// The phone family is listed first so that labels such as "smart watch" are
// held to the phone threshold.
func DefaultCategories() []Category {
	return []Category{
		{Name: "phone", Substrings: []string{"phone", "smart", "cell", "mobile"}, Threshold: 0.45, Phone: true},
		{Name: "reading", Substrings: []string{"book", "notebook", "textbook", "kindle", "paper", "note", "cheat sheet"}, Threshold: 0.55},
		{Name: "computer", Substrings: []string{"laptop", "tablet", "ipad"}, Threshold: 0.55},
		{Name: "electronics", Substrings: []string{"calculator", "electronic device"}, Threshold: 0.55},
		{Name: "person", Substrings: []string{"person", "human", "face"}, Threshold: 0.55},
		{Name: "audio", Substrings: []string{"headphone", "earphone", "airpod", "earbud"}, Threshold: 0.55},
		{Name: "wearable", Substrings: []string{"smart watch", "watch"}, Threshold: 0.55},
	}
}

// Table is the normalized, read-only form of a category list.
type Table struct {
	categories []Category
}

// NewTable lower-cases and validates categories. It fails on an empty table,
// unnamed categories, empty substring sets, or thresholds outside [0,1].
func NewTable(categories []Category) (*Table, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrInvalidCategory)
	}

	normalized := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: name required", ErrInvalidCategory)
		}
		if c.Threshold < 0 || c.Threshold > 1 {
			return nil, fmt.Errorf("%w: %s threshold %v out of range", ErrInvalidCategory, c.Name, c.Threshold)
		}

		subs := make([]string, 0, len(c.Substrings))
		for _, s := range c.Substrings {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				subs = append(subs, s)
			}
		}
		if len(subs) == 0 {
			return nil, fmt.Errorf("%w: %s has no substrings", ErrInvalidCategory, c.Name)
		}

		c.Substrings = subs
		normalized = append(normalized, c)
	}

	return &Table{categories: normalized}, nil
}

// Match returns the category a label belongs to.
func (t *Table) Match(label string) (Category, bool) {
	label = strings.ToLower(label)
	for _, c := range t.categories {
		for _, s := range c.Substrings {
			if strings.Contains(label, s) {
				return c, true
			}
		}
	}
	return Category{}, false
}

// IsPhone reports whether a label belongs to a phone-family category.
func (t *Table) IsPhone(label string) bool {
	c, ok := t.Match(label)
	return ok && c.Phone
}

// Prohibited filters detections down to those whose category threshold is
// strictly exceeded. Order is preserved.
func (t *Table) Prohibited(detections []ObjectDetection) []ObjectDetection {
	var out []ObjectDetection
	for _, d := range detections {
		if c, ok := t.Match(d.Label); ok && d.Confidence > c.Threshold {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns a copy of the normalized categories.
func (t *Table) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}
