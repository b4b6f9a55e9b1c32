package pdfrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned when the input does not start with the %PDF magic number
var ErrNotPDF = errors.New("input is not a PDF document")

// ErrNoPages is returned for a structurally valid document without pages
var ErrNoPages = errors.New("document has no pages")

// ErrNoRenderer is returned when rendering a page of an inspected-only document
var ErrNoRenderer = errors.New("document was opened without a renderer")

// ErrPageIndex is returned for a page index outside the document
var ErrPageIndex = errors.New("page index out of range")

var pdfMagic = []byte("%PDF")

// DocumentParseError means the input bytes cannot be used as a document.
// No page of such a document is ever rendered.
type DocumentParseError struct {
	Name string
	Err  error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("unable to parse document %q: %v", e.Name, e.Err)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Err
}

type pdfDocument struct {
	name   string
	pages  []*pdfPage
	source PageSource
}

type pdfPage struct {
	index  int
	size   Size
	source PageSource
}

// OpenDocument validates and parses data and prepares it for rendering with
// renderer. Every failure is reported as a *DocumentParseError.
func OpenDocument(name string, data []byte, renderer Renderer) (Document, error) {
	sizes, err := readPageSizes(data)
	if err != nil {
		return nil, &DocumentParseError{Name: name, Err: err}
	}

	doc := &pdfDocument{name: name}
	if renderer != nil {
		source, err := renderer.Load(data)
		if err != nil {
			return nil, &DocumentParseError{Name: name, Err: err}
		}
		doc.source = source
	}

	doc.pages = make([]*pdfPage, len(sizes))
	for i, size := range sizes {
		doc.pages[i] = &pdfPage{index: i, size: size, source: doc.source}
	}
	Logger.Debug("Opened document", "name", name, "pages", len(sizes))
	return doc, nil
}

// Inspect parses a document for its page sizes only; its pages cannot be rendered
func Inspect(name string, data []byte) (Document, error) {
	return OpenDocument(name, data, nil)
}

func (d *pdfDocument) Name() string {
	return d.name
}

func (d *pdfDocument) PageCount() int {
	return len(d.pages)
}

func (d *pdfDocument) Page(i int) (Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageIndex, i, len(d.pages))
	}
	return d.pages[i], nil
}

func (d *pdfDocument) Close() error {
	if d.source == nil {
		return nil
	}
	err := d.source.Close()
	d.source = nil
	return err
}

func (p *pdfPage) Index() int {
	return p.index
}

func (p *pdfPage) Size() Size {
	return p.size
}

func (p *pdfPage) Render(vp Viewport) (image.Image, error) {
	if p.source == nil {
		return nil, ErrNoRenderer
	}
	width, height := vp.Pixels()
	return p.source.RenderPage(p.index, float64(vp.Scale), width, height)
}

// readPageSizes walks the page tree and returns each page's visible size
func readPageSizes(data []byte) (sizes []Size, err error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrNotPDF
	}

	// the parser panics on some malformed cross reference tables
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered while parsing PDF", "panic", r)
			sizes = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, ErrNoPages
	}

	sizes = make([]Size, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			return nil, fmt.Errorf("page %d is missing from the page tree", pageNum)
		}
		size, err := pageSize(page.V)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

// pageSize is the crop box clipped to the media box, rotated by /Rotate
func pageSize(page pdf.Value) (Size, error) {
	mediaBox, ok := boxOf(inherited(page, "MediaBox"))
	if !ok {
		return Size{}, errors.New("no usable MediaBox")
	}
	box := mediaBox
	if cropBox, ok := boxOf(inherited(page, "CropBox")); ok {
		box = intersect(cropBox, mediaBox)
	}

	size := Size{Width: box[2] - box[0], Height: box[3] - box[1]}
	if size.Width <= 0 || size.Height <= 0 {
		return Size{}, fmt.Errorf("empty page box %v", box)
	}

	rotate := inherited(page, "Rotate")
	if rotate.Kind() == pdf.Integer {
		degrees := ((rotate.Int64() % 360) + 360) % 360
		if degrees == 90 || degrees == 270 {
			size.Width, size.Height = size.Height, size.Width
		}
	}
	return size, nil
}

// inherited looks key up on the page and then on its ancestors
func inherited(page pdf.Value, key string) pdf.Value {
	node := page
	for depth := 0; depth < 64 && node.Kind() == pdf.Dict; depth++ {
		if v := node.Key(key); !v.IsNull() {
			return v
		}
		node = node.Key("Parent")
	}
	return pdf.Value{}
}

// boxOf normalises a PDF rectangle to [llx lly urx ury]
func boxOf(v pdf.Value) ([4]float64, bool) {
	var box [4]float64
	if v.Kind() != pdf.Array || v.Len() != 4 {
		return box, false
	}
	for i := 0; i < 4; i++ {
		n := v.Index(i)
		switch n.Kind() {
		case pdf.Integer:
			box[i] = float64(n.Int64())
		case pdf.Real:
			box[i] = n.Float64()
		default:
			return box, false
		}
	}
	return [4]float64{
		math.Min(box[0], box[2]), math.Min(box[1], box[3]),
		math.Max(box[0], box[2]), math.Max(box[1], box[3]),
	}, true
}

func intersect(a, b [4]float64) [4]float64 {
	return [4]float64{
		math.Max(a[0], b[0]), math.Max(a[1], b[1]),
		math.Min(a[2], b[2]), math.Min(a[3], b[3]),
	}
}
