package engine

// Status is the lifecycle position of a walk.
type Status string

const (
	Running           Status = "running"
	Reached           Status = "reached"
	StepLimitExceeded Status = "step_limit_exceeded"
	DeadEnd           Status = "dead_end"
)

// Terminal reports whether the walk has stopped.
func (s Status) Terminal() bool {
	return s == Reached || s == StepLimitExceeded || s == DeadEnd
}

// Reasons attached to a DeadEnd.
const (
	ReasonNoLinks    = "no valid links"
	ReasonAllVisited = "all ranked candidates already visited"
)

// State is the mutable position of one walk.
type State struct {
	Current string
	Target  string
	Steps   int
	Status  Status
	Reason  string

	// Visited holds every title that has been current. It never shrinks.
	Visited map[string]struct{}

	// Path lists every title entered as current, start first.
	Path []string
}

// NewState returns the initial state of a walk from start to target.
func NewState(start, target string) *State {
	return &State{
		Current: start,
		Target:  target,
		Status:  Running,
		Visited: make(map[string]struct{}),
		Path:    []string{start},
	}
}
