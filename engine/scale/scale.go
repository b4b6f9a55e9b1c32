// Package scale holds the page scale factors and the preview dimensions
// derived from them. It has no rendering dependencies so the browser UI can
// use it too.
package scale

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Factor is the multiplier applied to a page's intrinsic size
type Factor float64

// Factors is the fixed set of scale factors a session may use, smallest first
var Factors = []Factor{0.5, 0.75, 1, 1.5, 2, 3, 4}

// Default is the factor preselected in the UI
const Default Factor = 2

// DefaultSoftMax is the dimension above which a preview is flagged as oversized
const DefaultSoftMax = 4080

// ErrInvalid is returned for a scale outside of Factors
var ErrInvalid = errors.New("scale must be one of 0.5x, 0.75x, 1x, 1.5x, 2x, 3x, 4x")

// Parse accepts a dropdown label such as "1.5x" or a bare number such as "1.5"
func Parse(label string) (Factor, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(label), "x")
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, label)
	}
	f := Factor(value)
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, label)
	}
	return f, nil
}

// Valid reports whether f is one of Factors
func (f Factor) Valid() bool {
	for _, allowed := range Factors {
		if f == allowed {
			return true
		}
	}
	return false
}

// String renders the factor the way the dropdown labels it
func (f Factor) String() string {
	return strconv.FormatFloat(float64(f), 'f', -1, 64) + "x"
}

// Size is an intrinsic page size in PDF points
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is a page size in destination units at one scale
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  Factor  `json:"scale"`
}

// Pixels is the size of the drawing surface for the viewport. Fractional
// sizes are truncated the way a canvas truncates an assigned width.
func (v Viewport) Pixels() (int, int) {
	return max(1, int(math.Trunc(v.Width))), max(1, int(math.Trunc(v.Height)))
}

// ViewportFor scales an intrinsic size. It is always computed from the
// intrinsic size so repeated scale changes cannot accumulate drift.
func ViewportFor(size Size, f Factor) Viewport {
	return Viewport{
		Width:  size.Width * float64(f),
		Height: size.Height * float64(f),
		Scale:  f,
	}
}

// Controller tracks the selected factor for one document and the preview
// size that follows from it
type Controller struct {
	intrinsic Size
	current   Factor
	softMax   float64
}

// NewController starts at Default. softMax of zero uses DefaultSoftMax.
func NewController(intrinsic Size, softMax float64) *Controller {
	if softMax <= 0 {
		softMax = DefaultSoftMax
	}
	return &Controller{intrinsic: intrinsic, current: Default, softMax: softMax}
}

// Set selects f, leaving the current factor unchanged when f is not allowed
func (c *Controller) Set(f Factor) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalid, float64(f))
	}
	c.current = f
	return nil
}

// SetLabel is Set for a dropdown label
func (c *Controller) SetLabel(label string) error {
	f, err := Parse(label)
	if err != nil {
		return err
	}
	return c.Set(f)
}

// Current returns the selected factor
func (c *Controller) Current() Factor {
	return c.current
}

// Intrinsic returns the size previews are computed from
func (c *Controller) Intrinsic() Size {
	return c.intrinsic
}

// Preview is the intrinsic size at the current factor
func (c *Controller) Preview() Viewport {
	return ViewportFor(c.intrinsic, c.current)
}

// Oversized reports whether the preview is beyond the soft size limit
func (c *Controller) Oversized() bool {
	p := c.Preview()
	return p.Width > c.softMax || p.Height > c.softMax
}
