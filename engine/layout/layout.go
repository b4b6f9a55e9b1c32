// Package layout places pages side by side on the host surface
package layout

// Gap is the horizontal space left between two placed pages
const Gap = 50

// Point is a position in host surface units
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the running layout of one host. Origin is captured when a page
// with index 0 arrives; Cursor is the x offset of the next page from Origin.
type State struct {
	Origin Point   `json:"origin"`
	Cursor float64 `json:"cursor"`
}

// Reset starts a new row at origin
func (s *State) Reset(origin Point) {
	s.Origin = origin
	s.Cursor = 0
}

// Accumulator owns a State and asks center for the viewport centre whenever a
// new session begins
type Accumulator struct {
	state  State
	center func() Point
}

// NewAccumulator creates an accumulator. center is called on every index 0 page.
func NewAccumulator(center func() Point) *Accumulator {
	return &Accumulator{center: center}
}

// Begin starts a new row at the current viewport centre. Place calls it for
// every index 0 page; callers that may reject page 0 call it first.
func (a *Accumulator) Begin() {
	a.state.Reset(a.center())
}

// Place returns the position for the page and advances the cursor past it.
// Calls must arrive in page order; nothing is reordered here.
func (a *Accumulator) Place(width, height float64, index int) Point {
	if index == 0 {
		a.Begin()
	}
	pos := Point{X: a.state.Origin.X + a.state.Cursor, Y: a.state.Origin.Y}
	a.state.Cursor += width + Gap
	return pos
}

// State returns a copy of the current layout
func (a *Accumulator) State() State {
	return a.state
}

// Restore puts back a state returned by State, undoing placements made since
func (a *Accumulator) Restore(s State) {
	a.state = s
}
