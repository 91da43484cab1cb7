package job

import "strings"

// RoleCategory is a coarse classification of an opportunity's tech-stack fit.
// The zero value is CategoryOther so unclassified listings rank last.
type RoleCategory string

const (
	CategoryJSTS      RoleCategory = "js-ts"
	CategoryFullStack RoleCategory = "full-stack"
	CategoryFrontend  RoleCategory = "frontend"
	CategoryBackend   RoleCategory = "backend"
	CategoryOther     RoleCategory = "other"
)

// DefaultCategoryOrder is the ranking priority, best first.
var DefaultCategoryOrder = []RoleCategory{
	CategoryJSTS,
	CategoryFullStack,
	CategoryFrontend,
	CategoryBackend,
	CategoryOther,
}

// CategoryRule maps keywords to a category. Rules are evaluated in order and
// the first rule with a matching keyword wins.
type CategoryRule struct {
	Category RoleCategory
	Keywords []string
}

// CategoryTable is an ordered keyword-to-category table plus the priority
// order used for ranking. Both are configurable; Default() matches the
// built-in preference for JS/TS work.
type CategoryTable struct {
	Rules []CategoryRule
	Order []RoleCategory
}

func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		Rules: []CategoryRule{
			{Category: CategoryJSTS, Keywords: []string{
				"javascript", "typescript", "react", "node.js", "nodejs",
				"next.js", "nextjs", "nestjs", "react native",
			}},
			{Category: CategoryFullStack, Keywords: []string{
				"full stack", "fullstack", "full-stack",
			}},
			{Category: CategoryFrontend, Keywords: []string{
				"frontend", "front-end", "front end",
			}},
			{Category: CategoryBackend, Keywords: []string{
				"backend", "back-end", "back end",
			}},
		},
		Order: DefaultCategoryOrder,
	}
}

// Classify derives the role category from a listing's title and description
// with case-insensitive substring matching, first match wins.
func (t CategoryTable) Classify(title, description string) RoleCategory {
	combined := strings.ToLower(title + " " + description)
	for _, rule := range t.Rules {
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(combined, strings.ToLower(kw)) {
				return rule.Category
			}
		}
	}
	return CategoryOther
}

// Priority returns the rank of a category in the configured order, lower is
// better. Categories missing from the order sort after all listed ones.
func (t CategoryTable) Priority(c RoleCategory) int {
	for i, o := range t.Order {
		if o == c {
			return i
		}
	}
	return len(t.Order)
}
