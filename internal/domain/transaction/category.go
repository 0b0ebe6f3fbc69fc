package transaction

import "strings"

// Category is one value of the closed spending vocabulary.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryBills         Category = "Bills"
	CategoryHealthcare    Category = "Healthcare"
	CategoryShopping      Category = "Shopping"
	CategoryInvestments   Category = "Investments"
	CategoryEducation     Category = "Education"
	CategoryTravel        Category = "Travel"
	CategoryIncome        Category = "Income"
	CategoryOther         Category = "Other"
)

// Categories lists the vocabulary in its canonical order. Other is always last.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryBills,
	CategoryHealthcare,
	CategoryShopping,
	CategoryInvestments,
	CategoryEducation,
	CategoryTravel,
	CategoryIncome,
	CategoryOther,
}

// aliases maps lower-cased spellings accepted from files and models
// onto the canonical category.
var aliases = map[string]Category{
	"investment": CategoryInvestments,
}

// ParseCategory is the single validation point for the vocabulary.
// Matching is case-insensitive; anything outside the vocabulary becomes Other.
func ParseCategory(raw string) Category {
	c, _ := LookupCategory(raw)
	return c
}

// LookupCategory is ParseCategory that also reports whether raw was
// recognised. Unknown values return (Other, false).
func LookupCategory(raw string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return CategoryOther, false
	}
	for _, c := range Categories {
		if strings.ToLower(string(c)) == key {
			return c, true
		}
	}
	if c, ok := aliases[key]; ok {
		return c, true
	}
	return CategoryOther, false
}

// Valid reports whether c is a canonical vocabulary member.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// CategoryNames returns the vocabulary as plain strings, e.g. for prompts and schemas.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
