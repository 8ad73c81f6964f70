package domain

// State is the user-visible application state.
type State int

const (
	StateIdle State = iota
	// StateBusy covers the assembly animation phase.
	StateBusy
	// StateGenerating is entered when the animation ended before the image
	// service answered.
	StateGenerating
	StateComplete
	StateError
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateGenerating:
		return "generating"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a generation attempt is still in progress.
func (s State) Busy() bool {
	return s == StateBusy || s == StateGenerating
}

// Snapshot is a point-in-time copy of the coordinator's state.
type Snapshot struct {
	State     State
	Dish      DishOption
	Image     *Image // set only in StateComplete
	Message   string // set only in StateError
	Err       error  // underlying cause behind Message
	Attempt   int
	AttemptID string
}
