package pdfrenderer

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// pointsPerInch is the PDF user space unit, so scale 1 renders at 72 DPI
const pointsPerInch = 72

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

// Load opens the document bytes with MuPDF
func (r *FitzRenderer) Load(data []byte) (PageSource, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzSource{doc: doc}, nil
}

// Close is a no-op, documents are closed by their PageSource
func (r *FitzRenderer) Close() error {
	return nil
}

type fitzSource struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (s *fitzSource) RenderPage(index int, scale float64, width, height int) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, fmt.Errorf("document already closed")
	}
	img, err := s.doc.ImageDPI(index, pointsPerInch*scale)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index, err)
	}
	return img, nil
}

func (s *fitzSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	err := s.doc.Close()
	s.doc = nil
	return err
}
