// Package dish provides the static catalog of dish concepts.
package dish

import (
	"context"
	"sync"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// Compile-time interface check.
var _ domain.DishCatalog = (*Catalog)(nil)

// Catalog holds the dish options in memory. Options are copied on the way
// out so callers can never mutate the seeded data.
type Catalog struct {
	mu      sync.RWMutex
	options map[domain.DishKind]domain.DishOption
	log     *logger.Logger
}

// NewCatalog creates a catalog preloaded with the built-in dishes.
func NewCatalog(log *logger.Logger) *Catalog {
	c := &Catalog{
		options: make(map[domain.DishKind]domain.DishOption),
		log:     log,
	}
	c.seed()
	return c
}

// List returns every option in menu order.
func (c *Catalog) List(ctx context.Context) ([]domain.DishOption, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.DishOption, 0, len(domain.DishKinds))
	for _, k := range domain.DishKinds {
		if opt, ok := c.options[k]; ok {
			out = append(out, clone(opt))
		}
	}
	return out, nil
}

// Get returns the option for kind.
func (c *Catalog) Get(ctx context.Context, kind domain.DishKind) (domain.DishOption, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	opt, ok := c.options[kind]
	if !ok {
		c.log.Debug("dish not found: %s", kind)
		return domain.DishOption{}, domain.ErrNotFound
	}
	return clone(opt), nil
}

// Default returns the option selected at startup.
func (c *Catalog) Default() domain.DishKind { return domain.DishTart }

func clone(opt domain.DishOption) domain.DishOption {
	opt.Ingredients = append([]string(nil), opt.Ingredients...)
	return opt
}

func (c *Catalog) seed() {
	for _, opt := range builtins {
		c.options[opt.Kind] = opt
	}
	c.log.Debug("seeded %d dishes", len(c.options))
}

var builtins = []domain.DishOption{
	{
		Kind:        domain.DishTart,
		Title:       "Option A – Golden Apple Tart",
		Style:       "Spiral Rosette Tart",
		Ingredients: []string{"Apple slices", "Egg", "Milk", "Flour", "Butter"},
		Prompt: "Professional food photography of a Golden Apple Tart. " +
			"Thin, curved, glossy, slightly translucent apple slices arranged in a perfect tight spiral rosette. " +
			"Golden-brown edges, smooth gradient from warm yellow to amber. " +
			"Low-key lighting, soft blur background, rustic wooden surface. Warm natural atmosphere. " +
			"Photorealistic, 8k resolution, cinematic lighting.",
	},
	{
		Kind:        domain.DishRing,
		Title:       "Option B – Radish-Petal Ring",
		Style:       "Radial Petal Ring with Center Blossom",
		Ingredients: []string{"Radish slices", "Prosciutto", "Seaweed mixed with sushi rice"},
		Prompt: "Professional food photography of a Radish-Petal Ring. " +
			"Paper-thin radish slices, white centers, pink edges, arranged as a tight circular ring. " +
			"Prosciutto flower in the center with delicate folds, soft marbling, pale pink with darker lines. " +
			"Base layer of soft rounded mound of seasoned sushi rice partially wrapped in seaweed. " +
			"Low-key lighting, soft blur background, marble surface. Warm natural atmosphere. " +
			"Photorealistic, 8k resolution, cinematic lighting.",
	},
}
