package host

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/drummonds/pdfcanvas/engine/codec"
	"github.com/drummonds/pdfcanvas/engine/layout"
	"github.com/oklog/ulid/v2"
)

// DrawableKind is the shape created to hold a page
type DrawableKind string

const (
	Rectangle DrawableKind = "rectangle"
	Frame     DrawableKind = "frame"
)

// ScaleMode says how an image fill maps onto its drawable
type ScaleMode string

// ScaleFill stretches the image over the drawable's bounds
const ScaleFill ScaleMode = "FILL"

// ImageHandle identifies an image resource held by a surface
type ImageHandle string

// Paint is one fill of a drawable
type Paint struct {
	Image     ImageHandle `json:"image"`
	ScaleMode ScaleMode   `json:"scaleMode"`
}

// Drawable is a host object holding one placed page
type Drawable struct {
	ID     string       `json:"id"`
	Kind   DrawableKind `json:"kind"`
	Name   string       `json:"name,omitempty"`
	Index  int          `json:"index"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Fills  []Paint      `json:"fills"`
}

// ErrDimension is returned by a surface that cannot hold a drawable of the requested size
var ErrDimension = errors.New("dimension exceeds the surface limit")

// ErrUnknownImage is returned for an image handle the surface does not hold
var ErrUnknownImage = errors.New("unknown image handle")

// Surface is the set of host operations used to place pages
type Surface interface {
	// CreateDrawable makes a detached drawable, failing with ErrDimension
	// when width or height is beyond what the surface supports
	CreateDrawable(kind DrawableKind, width, height float64) (*Drawable, error)
	// CreateImage stores encoded image bytes; malformed bytes are an error
	CreateImage(ctx context.Context, data []byte) (ImageHandle, error)
	// Append adds a drawable to the active surface
	Append(ctx context.Context, d *Drawable) error
	ViewportCenter(ctx context.Context) (layout.Point, error)
	SetSelection(ctx context.Context, ids []string) error
	ScrollIntoView(ctx context.Context, ids []string) error
}

// ImageSource reads stored image resources back
type ImageSource interface {
	Image(ctx context.Context, handle ImageHandle) ([]byte, error)
}

// NewDrawable checks the size against hardMax and returns a detached drawable
// with a fresh id. A hardMax of zero disables the check.
func NewDrawable(kind DrawableKind, width, height, hardMax float64) (*Drawable, error) {
	if hardMax > 0 && (width > hardMax || height > hardMax) {
		return nil, fmt.Errorf("%w: %vx%v exceeds %v", ErrDimension, width, height, hardMax)
	}
	return &Drawable{
		ID:     ulid.Make().String(),
		Kind:   kind,
		Width:  width,
		Height: height,
	}, nil
}

// ImageHash is the content address of an image resource
func ImageHash(data []byte) ImageHandle {
	sum := sha256.Sum256(data)
	return ImageHandle(hex.EncodeToString(sum[:]))
}

// MemorySurface is an in-process host surface
type MemorySurface struct {
	mu        sync.Mutex
	hardMax   float64
	center    layout.Point
	drawables []*Drawable
	images    map[ImageHandle][]byte
	selection []string
	scrolled  []string
}

// NewMemorySurface creates an empty surface whose viewport is centred on center
func NewMemorySurface(center layout.Point, hardMax float64) *MemorySurface {
	return &MemorySurface{
		hardMax: hardMax,
		center:  center,
		images:  make(map[ImageHandle][]byte),
	}
}

func (s *MemorySurface) CreateDrawable(kind DrawableKind, width, height float64) (*Drawable, error) {
	return NewDrawable(kind, width, height, s.hardMax)
}

func (s *MemorySurface) CreateImage(_ context.Context, data []byte) (ImageHandle, error) {
	if _, err := codec.DecodeImage(data); err != nil {
		return "", err
	}
	handle := ImageHash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[handle]; !ok {
		s.images[handle] = slices.Clone(data)
	}
	return handle, nil
}

func (s *MemorySurface) Image(_ context.Context, handle ImageHandle) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.images[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImage, handle)
	}
	return data, nil
}

func (s *MemorySurface) Append(_ context.Context, d *Drawable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fill := range d.Fills {
		if _, ok := s.images[fill.Image]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownImage, fill.Image)
		}
	}
	copied := *d
	copied.Fills = slices.Clone(d.Fills)
	s.drawables = append(s.drawables, &copied)
	return nil
}

func (s *MemorySurface) ViewportCenter(context.Context) (layout.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center, nil
}

// SetViewportCenter moves the viewport, as a user scrolling would
func (s *MemorySurface) SetViewportCenter(p layout.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = p
}

func (s *MemorySurface) SetSelection(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = slices.Clone(ids)
	return nil
}

func (s *MemorySurface) ScrollIntoView(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolled = slices.Clone(ids)
	return nil
}

// Drawables returns copies of the appended drawables in append order
func (s *MemorySurface) Drawables() []Drawable {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Drawable, len(s.drawables))
	for i, d := range s.drawables {
		out[i] = *d
	}
	return out
}

// Selection returns the selected drawable ids
func (s *MemorySurface) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selection)
}

// ScrolledTo returns the ids last scrolled into view
func (s *MemorySurface) ScrolledTo() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scrolled)
}
