package pipeline

// State is a step of the per-run page walk:
//
//	Fetching(page) -> Normalizing -> Persisting -> Caching -> Pausing -> Fetching(page+1)
//
// A cache hit goes from Fetching straight to Caching and skips Pausing. A
// rate-limited page goes to CoolingDown, any other failed page to Pausing.
type State int

const (
	StateFetching State = iota
	StateCoolingDown
	StateNormalizing
	StatePersisting
	StateCaching
	StatePausing
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateFetching:    "fetching",
	StateCoolingDown: "cooling_down",
	StateNormalizing: "normalizing",
	StatePersisting:  "persisting",
	StateCaching:     "caching",
	StatePausing:     "pausing",
	StateDone:        "done",
	StateAborted:     "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
