package pdfrenderer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"testing"

	"github.com/drummonds/pdfcanvas/internal/pdftest"
)

// solidPage renders a single colour at whatever size it is asked for,
// or at a fixed size when fixed is set
type solidPage struct {
	index  int
	size   Size
	fill   color.Color
	fixed  image.Point
	err    error
	block  chan struct{}
	inside chan struct{}
}

func (p *solidPage) Index() int { return p.index }
func (p *solidPage) Size() Size { return p.size }

func (p *solidPage) Render(vp Viewport) (image.Image, error) {
	if p.inside != nil {
		close(p.inside)
		<-p.block
	}
	if p.err != nil {
		return nil, p.err
	}
	w, h := vp.Pixels()
	if p.fixed != (image.Point{}) {
		w, h = p.fixed.X, p.fixed.Y
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.fill), image.Point{}, draw.Src)
	return img, nil
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	return img
}

func assertColour(t *testing.T, img image.Image, x, y int, want color.RGBA) {
	t.Helper()
	r, g, b, _ := img.At(x, y).RGBA()
	near := func(got uint32, want uint8) bool {
		d := int(got>>8) - int(want)
		return d > -8 && d < 8
	}
	if !near(r, want.R) || !near(g, want.G) || !near(b, want.B) {
		t.Errorf("Pixel (%d,%d): expected %v, got (%d,%d,%d)", x, y, want, r>>8, g>>8, b>>8)
	}
}

func TestRasterizer_RenderSizesSurfaceToViewport(t *testing.T) {
	r := NewRasterizer()
	defer r.Close()

	pages := []*solidPage{
		{index: 0, size: Size{Width: 200, Height: 100}, fill: color.RGBA{0, 0, 255, 255}},
		{index: 1, size: Size{Width: 300, Height: 150}, fill: color.RGBA{0, 255, 0, 255}},
	}
	want := []image.Point{{400, 200}, {600, 300}}

	for i, page := range pages {
		buf, err := r.Render(page, 2)
		if err != nil {
			t.Fatalf("Render page %d: %v", i, err)
		}
		if buf.Index != i {
			t.Errorf("Expected index %d, got %d", i, buf.Index)
		}
		if buf.Width != want[i].X || buf.Height != want[i].Y {
			t.Errorf("Expected %v, got %dx%d", want[i], buf.Width, buf.Height)
		}
		if buf.Viewport.Width != float64(want[i].X) || buf.Viewport.Scale != 2 {
			t.Errorf("Unexpected viewport %+v", buf.Viewport)
		}
		img := decodePNG(t, buf.PNG)
		if img.Bounds().Dx() != want[i].X || img.Bounds().Dy() != want[i].Y {
			t.Errorf("PNG is %v, expected %v", img.Bounds().Size(), want[i])
		}
		assertColour(t, img, want[i].X/2, want[i].Y/2, page.fill.(color.RGBA))
	}
}

func TestRasterizer_TransparentBitmapOnWhite(t *testing.T) {
	r := NewRasterizer()
	defer r.Close()

	page := &solidPage{size: Size{Width: 40, Height: 40}, fill: color.RGBA{}}
	buf, err := r.Render(page, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	assertColour(t, decodePNG(t, buf.PNG), 20, 20, color.RGBA{255, 255, 255, 255})
}

func TestRasterizer_NormalisesBackendSize(t *testing.T) {
	r := NewRasterizer()
	defer r.Close()

	page := &solidPage{size: Size{Width: 100, Height: 50}, fill: color.RGBA{255, 0, 0, 255}, fixed: image.Pt(99, 51)}
	buf, err := r.Render(page, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img := decodePNG(t, buf.PNG)
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %v", img.Bounds().Size())
	}
	assertColour(t, img, 50, 25, color.RGBA{255, 0, 0, 255})
}

func TestRasterizer_PropagatesPageError(t *testing.T) {
	r := NewRasterizer()
	defer r.Close()

	boom := errors.New("boom")
	if _, err := r.Render(&solidPage{size: Size{Width: 10, Height: 10}, err: boom}, 1); !errors.Is(err, boom) {
		t.Errorf("Expected page error, got %v", err)
	}

	// the surface is usable again after a failure
	if _, err := r.Render(&solidPage{size: Size{Width: 10, Height: 10}, fill: color.White}, 1); err != nil {
		t.Errorf("Expected render after failure to succeed, got %v", err)
	}
}

func TestRasterizer_RejectsOverlappingRender(t *testing.T) {
	r := NewRasterizer()
	defer r.Close()

	slow := &solidPage{size: Size{Width: 10, Height: 10}, fill: color.White,
		block: make(chan struct{}), inside: make(chan struct{})}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = r.Render(slow, 1)
	}()

	<-slow.inside
	if _, err := r.Render(&solidPage{size: Size{Width: 10, Height: 10}, fill: color.White}, 1); !errors.Is(err, ErrRasterizerBusy) {
		t.Errorf("Expected ErrRasterizerBusy, got %v", err)
	}
	close(slow.block)
	wg.Wait()

	if firstErr != nil {
		t.Errorf("First render failed: %v", firstErr)
	}
}

// TestPDFiumRendering renders a generated document through the WebAssembly backend
func TestPDFiumRendering(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PDFium rendering test in short mode")
	}

	renderer, err := NewRenderer("pdfium")
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Close()

	doc, err := OpenDocument("two.pdf", pdftest.Build(pdftest.Sizes(200, 100, 300, 150)...), renderer)
	if err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	r := NewRasterizer()
	defer r.Close()

	for i, want := range []image.Point{{400, 200}, {600, 300}} {
		page, err := doc.Page(i)
		if err != nil {
			t.Fatalf("Failed to get page %d: %v", i, err)
		}
		buf, err := r.Render(page, 2)
		if err != nil {
			t.Fatalf("Failed to render page %d: %v", i, err)
		}
		img := decodePNG(t, buf.PNG)
		if img.Bounds().Size() != want {
			t.Errorf("Page %d: expected %v, got %v", i, want, img.Bounds().Size())
		}
		assertColour(t, img, want.X/2, want.Y/2, color.RGBA{255, 0, 0, 255})
	}
}
