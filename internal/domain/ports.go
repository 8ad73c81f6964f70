package domain

import "context"

// DishCatalog provides the static dish options.
type DishCatalog interface {
	List(ctx context.Context) ([]DishOption, error)
	Get(ctx context.Context, kind DishKind) (DishOption, error)
}

// ImageGenerator turns a prompt into an image. Ready must answer without
// touching the network so callers can fail fast on missing configuration.
type ImageGenerator interface {
	Ready() error
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// Animator plays the assembly animation for a dish and calls onComplete
// once its fixed duration has elapsed. onComplete is never called from
// within Start.
type Animator interface {
	Start(kind DishKind, onComplete func()) AnimationRun
}

// AnimationRun is a started animation.
type AnimationRun interface {
	Stop()
}

// PreviewStore exports a finished image somewhere the user can open it.
type PreviewStore interface {
	Save(ctx context.Context, snap Snapshot) (string, error)
}

// Chime plays the reveal sound. Implementations must not block.
type Chime interface {
	Ring()
}
