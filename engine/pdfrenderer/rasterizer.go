package pdfrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
)

// ErrRasterizerBusy is returned when Render is entered while another call is running
var ErrRasterizerBusy = errors.New("rasterizer is already rendering a page")

// PixelBuffer is the rasterised output of one page at one scale
type PixelBuffer struct {
	Index    int
	Viewport Viewport
	// Width and Height are the pixel size of PNG
	Width  int
	Height int
	PNG    []byte
}

// Rasterizer owns the single drawing surface every page is rendered onto.
//
// A Rasterizer is not reentrant. Callers must wait for Render to return
// before calling it again; an overlapping call fails with ErrRasterizerBusy.
type Rasterizer struct {
	surface *gg.Context
	busy    atomic.Bool
}

// NewRasterizer creates the drawing surface. It is resized on every Render.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{surface: gg.NewContext(1, 1)}
}

// Render resizes the surface to the page viewport at scale, clears it to
// white, composites the backend bitmap and encodes the result as PNG
func (r *Rasterizer) Render(page Page, scale ScaleFactor) (PixelBuffer, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return PixelBuffer{}, ErrRasterizerBusy
	}
	defer r.busy.Store(false)

	vp := ViewportFor(page, scale)
	width, height := vp.Pixels()
	if err := r.surface.Resize(width, height); err != nil {
		return PixelBuffer{}, fmt.Errorf("unable to resize surface for page %d: %w", page.Index(), err)
	}
	r.surface.ClearWithColor(gg.White)

	img, err := page.Render(vp)
	if err != nil {
		return PixelBuffer{}, err
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		Logger.Debug("Normalising backend bitmap", "index", page.Index(),
			"got", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()), "want", fmt.Sprintf("%dx%d", width, height))
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	r.surface.DrawImage(gg.ImageBufFromImage(img), 0, 0)

	var buf bytes.Buffer
	if err := r.surface.EncodePNG(&buf); err != nil {
		return PixelBuffer{}, fmt.Errorf("unable to encode page %d: %w", page.Index(), err)
	}
	return PixelBuffer{
		Index:    page.Index(),
		Viewport: vp,
		Width:    width,
		Height:   height,
		PNG:      buf.Bytes(),
	}, nil
}

// Close releases the drawing surface
func (r *Rasterizer) Close() error {
	return r.surface.Close()
}
