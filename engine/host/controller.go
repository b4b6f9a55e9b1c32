// Package host is the placement side: it turns INSERT_IMAGE messages into
// drawables on a host surface and acknowledges them
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/drummonds/pdfcanvas/engine/channel"
	"github.com/drummonds/pdfcanvas/engine/codec"
	"github.com/drummonds/pdfcanvas/engine/layout"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Failure kinds reported in INSERT_FAILED messages
const (
	FailureCorruptPayload  = "CORRUPT_PAYLOAD"
	FailureOversizedHard   = "OVERSIZED_DIMENSION_HARD"
	FailureUnexpectedFrame = "UNEXPECTED_MESSAGE"
	FailureHost            = "HOST_ERROR"
)

// WarningOversized is the soft limit warning carried on IMAGE_INSERTED
const WarningOversized = "OVERSIZED_DIMENSION"

// DefaultSoftMaxDimension is the size above which a page is placed with a warning
const DefaultSoftMaxDimension = 4080

// ErrUnexpectedMessage is returned for anything but an INSERT_IMAGE with a payload
var ErrUnexpectedMessage = errors.New("unexpected message")

// CorruptPayloadError means the payload bytes are not a usable image
type CorruptPayloadError struct {
	Index int
	Err   error
}

func (e *CorruptPayloadError) Error() string {
	return fmt.Sprintf("corrupt payload for page %d: %v", e.Index, e.Err)
}

func (e *CorruptPayloadError) Unwrap() error {
	return e.Err
}

// OversizedDimensionHardError means the surface refused a drawable of this size
type OversizedDimensionHardError struct {
	Index  int
	Width  float64
	Height float64
	Err    error
}

func (e *OversizedDimensionHardError) Error() string {
	return fmt.Sprintf("page %d of %vx%v is too large for the surface: %v", e.Index, e.Width, e.Height, e.Err)
}

func (e *OversizedDimensionHardError) Unwrap() error {
	return e.Err
}

// Ack is the outcome of a placed page
type Ack struct {
	Index    int
	Drawable Drawable
	// Warning is WarningOversized when the soft limit was exceeded
	Warning string
}

// Controller places incoming pages on a surface. It is used by one goroutine.
type Controller struct {
	surface Surface
	layout  *layout.Accumulator
	softMax float64
	center  layout.Point
}

// NewController creates a controller for surface. softMax of zero uses DefaultSoftMaxDimension.
func NewController(surface Surface, softMax float64) *Controller {
	if softMax <= 0 {
		softMax = DefaultSoftMaxDimension
	}
	c := &Controller{surface: surface, softMax: softMax}
	c.layout = layout.NewAccumulator(func() layout.Point { return c.center })
	return c
}

// Layout returns the current layout state
func (c *Controller) Layout() layout.State {
	return c.layout.State()
}

// OnPayload places one INSERT_IMAGE message. On any error nothing is
// appended and the cursor does not move past the rejected page. Index 0
// always starts a new row at the viewport centre.
func (c *Controller) OnPayload(ctx context.Context, msg channel.Message) (Ack, error) {
	if msg.Type != channel.InsertImage || msg.Payload == nil {
		return Ack{}, fmt.Errorf("%w: %s for page %d", ErrUnexpectedMessage, msg.Type, msg.Index)
	}

	// a new document starts a new row even when its first page is rejected
	if msg.Index == 0 {
		center, err := c.surface.ViewportCenter(ctx)
		if err != nil {
			return Ack{}, fmt.Errorf("unable to read viewport centre: %w", err)
		}
		c.center = center
		c.layout.Begin()
	}

	data, err := codec.Decode(*msg.Payload)
	if err != nil {
		return Ack{}, &CorruptPayloadError{Index: msg.Index, Err: err}
	}

	drawable, err := c.surface.CreateDrawable(Rectangle, msg.Width, msg.Height)
	if err != nil {
		if errors.Is(err, ErrDimension) {
			return Ack{}, &OversizedDimensionHardError{Index: msg.Index, Width: msg.Width, Height: msg.Height, Err: err}
		}
		return Ack{}, fmt.Errorf("unable to create drawable for page %d: %w", msg.Index, err)
	}
	drawable.Name = msg.Name
	drawable.Index = msg.Index

	handle, err := c.surface.CreateImage(ctx, data)
	if err != nil {
		if errors.Is(err, codec.ErrMalformedPayload) {
			return Ack{}, &CorruptPayloadError{Index: msg.Index, Err: err}
		}
		return Ack{}, fmt.Errorf("unable to store image for page %d: %w", msg.Index, err)
	}
	drawable.Fills = []Paint{{Image: handle, ScaleMode: ScaleFill}}

	var warning string
	if msg.Width > c.softMax || msg.Height > c.softMax {
		warning = WarningOversized
		Logger.Warn("Page exceeds the soft size limit, placing it anyway",
			"index", msg.Index, "width", msg.Width, "height", msg.Height, "limit", c.softMax)
	}

	before := c.layout.State()
	pos := c.layout.Place(msg.Width, msg.Height, msg.Index)
	drawable.X, drawable.Y = pos.X, pos.Y

	if err := c.surface.Append(ctx, drawable); err != nil {
		c.layout.Restore(before)
		return Ack{}, fmt.Errorf("unable to append page %d: %w", msg.Index, err)
	}

	ids := []string{drawable.ID}
	if err := c.surface.SetSelection(ctx, ids); err != nil {
		Logger.Warn("Unable to select placed page", "index", msg.Index, "error", err)
	}
	if err := c.surface.ScrollIntoView(ctx, ids); err != nil {
		Logger.Warn("Unable to scroll to placed page", "index", msg.Index, "error", err)
	}

	Logger.Debug("Placed page", "index", msg.Index, "name", msg.Name, "x", pos.X, "y", pos.Y)
	return Ack{Index: msg.Index, Drawable: *drawable, Warning: warning}, nil
}

// FailureKind maps an OnPayload error to the kind sent in INSERT_FAILED
func FailureKind(err error) string {
	var corrupt *CorruptPayloadError
	var oversized *OversizedDimensionHardError
	switch {
	case errors.As(err, &corrupt):
		return FailureCorruptPayload
	case errors.As(err, &oversized):
		return FailureOversizedHard
	case errors.Is(err, ErrUnexpectedMessage):
		return FailureUnexpectedFrame
	}
	return FailureHost
}
