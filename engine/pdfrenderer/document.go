package pdfrenderer

import (
	"fmt"
	"image"

	"github.com/drummonds/pdfcanvas/engine/scale"
)

// ScaleFactor is the multiplier applied to a page's intrinsic size
type ScaleFactor = scale.Factor

// Size is an intrinsic page size in PDF points
type Size = scale.Size

// Viewport is a page size in destination units at one scale
type Viewport = scale.Viewport

// Scales is the fixed set of scale factors a session may use
var Scales = scale.Factors

// ErrInvalidScale is returned for a scale outside of Scales
var ErrInvalidScale = scale.ErrInvalid

// ParseScale accepts a dropdown label such as "1.5x" or a bare number such as "1.5"
func ParseScale(label string) (ScaleFactor, error) {
	return scale.Parse(label)
}

// Document is the rendering context's view of a loaded document
type Document interface {
	Name() string
	PageCount() int
	// Page returns the page with the 0-based index i
	Page(i int) (Page, error)
	Close() error
}

// Page is one addressable page of a Document
type Page interface {
	Index() int
	// Size is the intrinsic page size, already rotated
	Size() Size
	// Render rasterises the page at the viewport's pixel size
	Render(vp Viewport) (image.Image, error)
}

// ViewportFor scales the intrinsic size of page
func ViewportFor(page Page, f ScaleFactor) Viewport {
	return scale.ViewportFor(page.Size(), f)
}

// PageName is the display name given to a placed page, n being 1-based
func PageName(documentName string, n, total int) string {
	return fmt.Sprintf("%s - Page %d of %d", documentName, n, total)
}
