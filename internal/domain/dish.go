// Package domain defines the core types and interfaces for the dish stylist.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"strconv"
	"strings"
)

// DishKind identifies one of the fixed dish presets.
type DishKind string

const (
	DishTart DishKind = "tart"
	DishRing DishKind = "ring"
)

// DishKinds lists every kind in menu order.
var DishKinds = []DishKind{DishTart, DishRing}

// ParseDishKind accepts a kind identifier ("tart") or its 1-based menu
// position ("1").
func ParseDishKind(s string) (DishKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(DishKinds) {
			return DishKinds[n-1], nil
		}
		return "", ErrNotFound
	}
	for _, k := range DishKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrNotFound
}

// DishOption is a selectable dish concept. Options are static and never
// mutated after the catalog is seeded.
type DishOption struct {
	Kind        DishKind
	Title       string
	Style       string
	Ingredients []string
	Prompt      string // sent verbatim to the image model
}

// DisplayName returns the title without its "Option X –" prefix.
func (d DishOption) DisplayName() string {
	if _, name, ok := strings.Cut(d.Title, "–"); ok {
		return strings.TrimSpace(name)
	}
	return d.Title
}
