package surface

// State is what a surface currently shows. The concrete types are Idle,
// Loading, Ready and Failed; no others exist. Switch on them with a type
// switch and a default that panics, so a missed case fails loudly in tests.
type State interface {
	state()
}

// Idle means no book is active.
type Idle struct{}

// Loading means an import or cache lookup is in flight.
type Loading struct {
	Source string
}

// Ready holds the active book. Segments is shared with the cache and must
// not be modified.
type Ready struct {
	Hash     string
	Title    string
	Segments []string
	Chapters []string // nil when the record predates chapters
	Index    int
}

// Failed ends an import attempt. Only a new import leaves it.
type Failed struct {
	Err error
}

func (Idle) state()    {}
func (Loading) state() {}
func (Ready) state()   {}
func (Failed) state()  {}

// Len returns the number of excerpts.
func (r Ready) Len() int { return len(r.Segments) }

// Text returns the current excerpt.
func (r Ready) Text() string { return r.Segments[r.Index] }

// Last reports whether the current excerpt is the final one.
func (r Ready) Last() bool { return r.Index == len(r.Segments)-1 }

// Name returns a short label for s, used in logs and status lines.
func Name(s State) string {
	switch s.(type) {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		panic("surface: unknown state")
	}
}
