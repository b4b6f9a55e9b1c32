package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
	"github.com/drummonds/pdfcanvas/engine/codec"
	"github.com/gogpu/gg"
)

// ErrEmptySurface is returned when a snapshot is requested of a surface with no drawables
var ErrEmptySurface = errors.New("surface has no drawables")

const snapshotMargin = 20

// Snapshot draws the bounding box of drawables onto a gg canvas, at most
// maxWidth pixels wide, and returns it as PNG
func Snapshot(ctx context.Context, drawables []Drawable, images ImageSource, maxWidth int) ([]byte, error) {
	if len(drawables) == 0 {
		return nil, ErrEmptySurface
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, d := range drawables {
		minX, minY = math.Min(minX, d.X), math.Min(minY, d.Y)
		maxX, maxY = math.Max(maxX, d.X+d.Width), math.Max(maxY, d.Y+d.Height)
	}
	minX, minY = minX-snapshotMargin, minY-snapshotMargin
	maxX, maxY = maxX+snapshotMargin, maxY+snapshotMargin

	factor := 1.0
	if maxWidth > 0 && maxX-minX > float64(maxWidth) {
		factor = float64(maxWidth) / (maxX - minX)
	}
	width := max(1, int(math.Ceil((maxX-minX)*factor)))
	height := max(1, int(math.Ceil((maxY-minY)*factor)))

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.RGB(0.9, 0.9, 0.9))

	for _, d := range drawables {
		x, y := (d.X-minX)*factor, (d.Y-minY)*factor
		w, h := max(1, d.Width*factor), max(1, d.Height*factor)

		for _, fill := range d.Fills {
			data, err := images.Image(ctx, fill.Image)
			if err != nil {
				return nil, fmt.Errorf("unable to load image for %s: %w", d.ID, err)
			}
			img, err := codec.DecodeImage(data)
			if err != nil {
				return nil, err
			}
			if factor < 1 {
				img = imaging.Fit(img, int(math.Ceil(w)), int(math.Ceil(h)), imaging.Lanczos)
			}
			dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{X: x, Y: y, DstWidth: w, DstHeight: h})
		}

		dc.SetRGB(0.4, 0.4, 0.4)
		dc.SetLineWidth(1)
		dc.DrawRectangle(x, y, w, h)
		if err := dc.Stroke(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
