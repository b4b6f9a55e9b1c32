package pdfrenderer

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumRenderer implements PDF rendering using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumRenderer struct {
	// the instance is not safe for concurrent use
	mu       sync.Mutex
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPDFiumRenderer creates a new PDFium-based PDF renderer using WebAssembly
func NewPDFiumRenderer() (*PDFiumRenderer, error) {
	// One worker: pages are rendered strictly one at a time
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PDFiumRenderer{
		pool:     pool,
		instance: instance,
	}, nil
}

// Load opens the document bytes inside the PDFium instance
func (r *PDFiumRenderer) Load(data []byte) (PageSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil, fmt.Errorf("renderer already closed")
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &pdfiumSource{renderer: r, document: doc.Document}, nil
}

// Close cleans up resources used by the PDFium renderer
func (r *PDFiumRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}

type pdfiumSource struct {
	renderer *PDFiumRenderer
	document references.FPDF_DOCUMENT
	closed   bool
}

func (s *pdfiumSource) RenderPage(index int, scale float64, width, height int) (image.Image, error) {
	r := s.renderer
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.closed || r.instance == nil {
		return nil, fmt.Errorf("document already closed")
	}

	pageRender, err := r.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Width:  width,
		Height: height,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: s.document,
				Index:    index,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index, err)
	}
	// The bitmap lives in WebAssembly memory until Cleanup, so copy it out first
	img := imaging.Clone(pageRender.Result.Image)
	pageRender.Cleanup()
	return img, nil
}

func (s *pdfiumSource) Close() error {
	r := s.renderer
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.closed || r.instance == nil {
		return nil
	}
	s.closed = true
	_, err := r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: s.document,
	})
	return err
}
