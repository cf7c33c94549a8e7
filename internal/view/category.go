package view

import "strings"

const CategoryOther = "other"

// Category is the display form of an event type.
type Category struct {
	Key   string
	Label string
	Color string
}

var categories = []Category{
	{Key: "politics", Label: "Politics", Color: "#2563eb"},
	{Key: "conflict", Label: "Conflict", Color: "#dc2626"},
	{Key: "economy", Label: "Economy", Color: "#16a34a"},
	{Key: "technology", Label: "Technology", Color: "#7c3aed"},
	{Key: "science", Label: "Science", Color: "#0891b2"},
	{Key: "health", Label: "Health", Color: "#db2777"},
	{Key: "environment", Label: "Environment", Color: "#65a30d"},
	{Key: "society", Label: "Society", Color: "#ea580c"},
	{Key: "sports", Label: "Sports", Color: "#ca8a04"},
	{Key: "culture", Label: "Culture", Color: "#9333ea"},
	{Key: CategoryOther, Label: "Other", Color: "#6b7280"},
}

// categoryAliases folds deprecated event types into current ones.
var categoryAliases = map[string]string{
	"security": "conflict",
}

var categoryByKey = func() map[string]Category {
	m := make(map[string]Category, len(categories))
	for _, c := range categories {
		m[c.Key] = c
	}
	return m
}()

// ResolveCategory maps a backend event type to its display category.
// Unknown or empty types resolve to "other".
func ResolveCategory(eventType string) Category {
	key := strings.ToLower(strings.TrimSpace(eventType))
	if alias, ok := categoryAliases[key]; ok {
		key = alias
	}
	if c, ok := categoryByKey[key]; ok {
		return c
	}
	return categoryByKey[CategoryOther]
}

// Categories lists the selectable categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
