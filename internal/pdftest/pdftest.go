// Package pdftest writes small, valid PDF files for tests
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Page describes one page of a generated document, sizes in points
type Page struct {
	Width   float64
	Height  float64
	Rotate  int
	CropBox []float64 // optional [llx lly urx ury]
}

// Sizes turns width, height pairs into pages
func Sizes(dims ...float64) []Page {
	pages := make([]Page, 0, len(dims)/2)
	for i := 0; i+1 < len(dims); i += 2 {
		pages = append(pages, Page{Width: dims[i], Height: dims[i+1]})
	}
	return pages
}

// Build returns a PDF with one page per entry. Every page is filled with a
// solid red rectangle so rendered output can be checked by colour.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	object := func(body string) int {
		offsets = append(offsets, buf.Len())
		n := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
		return n
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// page objects are numbered 3, 5, 7... with their content stream following
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	for i, page := range pages {
		dict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << >> /Contents %d 0 R",
			num(page.Width), num(page.Height), 4+2*i)
		if len(page.CropBox) == 4 {
			dict += fmt.Sprintf(" /CropBox [%s %s %s %s]",
				num(page.CropBox[0]), num(page.CropBox[1]), num(page.CropBox[2]), num(page.CropBox[3]))
		}
		if page.Rotate != 0 {
			dict += fmt.Sprintf(" /Rotate %d", page.Rotate)
		}
		object(dict + " >>")

		content := fmt.Sprintf("1 0 0 rg 0 0 %s %s re f", num(page.Width), num(page.Height))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
