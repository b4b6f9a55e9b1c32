// Package sequencer drives the pages of one document through rasterisation,
// encoding and the host channel, strictly one page at a time
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/drummonds/pdfcanvas/engine/channel"
	"github.com/drummonds/pdfcanvas/engine/codec"
	"github.com/drummonds/pdfcanvas/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// State is a sequencer state
type State int

const (
	Idle State = iota
	Rendering
	Emitting
	Done
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Rendering:
		return "Rendering"
	case Emitting:
		return "Emitting"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Cancelled
}

// Status is a state together with the page it applies to
type Status struct {
	State State
	Index int
	Total int
}

func (s Status) String() string {
	if s.State == Rendering || s.State == Emitting {
		return fmt.Sprintf("%s(%d)", s.State, s.Index)
	}
	return s.State.String()
}

// ErrSequencerUsed is returned when Run is called a second time
var ErrSequencerUsed = errors.New("sequencer already ran, start a new one for the next document")

// ErrCancelled is the result error of a cancelled run
var ErrCancelled = errors.New("session cancelled")

// RasterizationError reports the page that could not be rendered
type RasterizationError struct {
	Index int
	Err   error
}

func (e *RasterizationError) Error() string {
	return fmt.Sprintf("unable to rasterise page %d: %v", e.Index, e.Err)
}

func (e *RasterizationError) Unwrap() error {
	return e.Err
}

// Loader opens the document for a run. Any error it returns is reported
// as a *pdfrenderer.DocumentParseError.
type Loader func() (pdfrenderer.Document, error)

// PageRasterizer renders one page; *pdfrenderer.Rasterizer implements it
type PageRasterizer interface {
	Render(page pdfrenderer.Page, scale pdfrenderer.ScaleFactor) (pdfrenderer.PixelBuffer, error)
}

// Sender queues a message for the host; *channel.Channel implements it
type Sender interface {
	Send(ctx context.Context, msg channel.Message) error
}

// Options tune a run. The zero value sends binary payloads without retries.
type Options struct {
	Form    codec.Form
	Retries int
	// Observer is called after every state transition, from the Run goroutine
	Observer func(Status)
}

// Result is the outcome of Run
type Result struct {
	State State
	// Pages is the number of INSERT_IMAGE messages sent
	Pages int
	Total int
	Err   error
}

// Sequencer processes a single document at a single scale
type Sequencer struct {
	load    Loader
	scale   pdfrenderer.ScaleFactor
	raster  PageRasterizer
	out     Sender
	options Options

	mu        sync.Mutex
	status    Status
	used      atomic.Bool
	cancelled atomic.Bool
}

// New creates a sequencer in the Idle state
func New(load Loader, scale pdfrenderer.ScaleFactor, raster PageRasterizer, out Sender, options Options) *Sequencer {
	if options.Form == "" {
		options.Form = codec.Binary
	}
	return &Sequencer{
		load:    load,
		scale:   scale,
		raster:  raster,
		out:     out,
		options: options,
	}
}

// Cancel asks a running sequencer to stop before its next page
func (s *Sequencer) Cancel() {
	s.cancelled.Store(true)
}

// Status returns the current state
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Sequencer) transition(state State, index, total int) {
	st := Status{State: state, Index: index, Total: total}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	Logger.Debug("Sequencer transition", "status", st.String(), "total", total)
	if s.options.Observer != nil {
		s.options.Observer(st)
	}
}

// Run loads the document and sends its pages in ascending order. It returns
// after the last page was sent, on the first failure, or when cancelled.
// Host acknowledgements are never awaited.
func (s *Sequencer) Run(ctx context.Context) Result {
	if !s.used.CompareAndSwap(false, true) {
		return Result{State: s.Status().State, Err: ErrSequencerUsed}
	}
	if !s.scale.Valid() {
		return Result{State: Idle, Err: fmt.Errorf("%w: %v", pdfrenderer.ErrInvalidScale, float64(s.scale))}
	}

	doc, err := s.load()
	if err != nil {
		var parseErr *pdfrenderer.DocumentParseError
		if !errors.As(err, &parseErr) {
			err = &pdfrenderer.DocumentParseError{Err: err}
		}
		Logger.Error("Unable to load document", "error", err)
		return Result{State: Idle, Err: err}
	}
	defer func() {
		if err := doc.Close(); err != nil {
			Logger.Warn("Failed to close document", "name", doc.Name(), "error", err)
		}
	}()

	total := doc.PageCount()
	sent := 0
	for i := 0; i < total; i++ {
		if s.cancelled.Load() || ctx.Err() != nil {
			return s.cancel(i, sent, total)
		}

		s.transition(Rendering, i, total)
		buf, err := s.renderPage(ctx, doc, i)
		if err != nil {
			Logger.Error("Page rasterisation failed", "index", i, "error", err)
			s.transition(Failed, i, total)
			return Result{State: Failed, Pages: sent, Total: total, Err: &RasterizationError{Index: i, Err: err}}
		}

		s.transition(Emitting, i, total)
		msg := channel.NewInsertImage(codec.Encode(buf.PNG, s.options.Form),
			buf.Viewport.Width, buf.Viewport.Height, i, pdfrenderer.PageName(doc.Name(), i+1, total))
		if err := s.out.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return s.cancel(i, sent, total)
			}
			s.transition(Failed, i, total)
			return Result{State: Failed, Pages: sent, Total: total, Err: fmt.Errorf("unable to send page %d: %w", i, err)}
		}
		sent++
	}

	s.transition(Done, total, total)
	Logger.Info("All pages sent", "name", doc.Name(), "pages", sent, "scale", s.scale.String())
	return Result{State: Done, Pages: sent, Total: total}
}

func (s *Sequencer) cancel(index, sent, total int) Result {
	Logger.Info("Sequencer cancelled", "index", index, "sent", sent)
	s.transition(Cancelled, index, total)
	return Result{State: Cancelled, Pages: sent, Total: total, Err: ErrCancelled}
}

// renderPage renders page i, retrying up to Options.Retries more times
func (s *Sequencer) renderPage(ctx context.Context, doc pdfrenderer.Document, i int) (pdfrenderer.PixelBuffer, error) {
	page, err := doc.Page(i)
	if err != nil {
		return pdfrenderer.PixelBuffer{}, err
	}
	for attempt := 0; ; attempt++ {
		buf, err := s.raster.Render(page, s.scale)
		if err == nil {
			return buf, nil
		}
		if attempt >= s.options.Retries || ctx.Err() != nil || errors.Is(err, pdfrenderer.ErrRasterizerBusy) {
			return pdfrenderer.PixelBuffer{}, err
		}
		Logger.Warn("Retrying page render", "index", i, "attempt", attempt+1, "error", err)
	}
}
