package pdfrenderer

import (
	"fmt"
	"image"
	"log/slog"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Renderer is a rasterisation backend for PDF pages
type Renderer interface {
	// Load prepares the document bytes for page rendering
	Load(data []byte) (PageSource, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// PageSource renders the pages of one loaded document
type PageSource interface {
	// RenderPage rasterises the 0-based page index at scale, aiming for
	// width x height pixels. Backends may miss the exact size by rounding.
	RenderPage(index int, scale float64, width, height int) (image.Image, error)

	Close() error
}

// NewRenderer creates the renderer for a backend name, pdfium (pure Go) or fitz (CGo)
func NewRenderer(backend string) (Renderer, error) {
	switch backend {
	case "", "pdfium":
		return NewPDFiumRenderer()
	case "fitz":
		return NewFitzRenderer()
	default:
		return nil, fmt.Errorf("unknown render backend %q, expected pdfium or fitz", backend)
	}
}
