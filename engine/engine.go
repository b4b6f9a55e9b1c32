package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/drummonds/pdfcanvas/config"
	"github.com/drummonds/pdfcanvas/database"
	"github.com/drummonds/pdfcanvas/engine/channel"
	"github.com/drummonds/pdfcanvas/engine/codec"
	"github.com/drummonds/pdfcanvas/engine/host"
	"github.com/drummonds/pdfcanvas/engine/pdfrenderer"
	"github.com/drummonds/pdfcanvas/engine/scale"
	"github.com/drummonds/pdfcanvas/engine/sequencer"
	"github.com/oklog/ulid/v2"
)

// ErrSessionActive is returned when a document is submitted while another one is still being inserted
var ErrSessionActive = errors.New("a document is already being inserted")

// ErrNoActiveSession is returned when there is nothing to cancel
var ErrNoActiveSession = errors.New("no document is being inserted")

// RendererFactory creates a rasterisation backend by name
type RendererFactory func(backend string) (pdfrenderer.Renderer, error)

// Session is one document being inserted onto the surface
type Session struct {
	ID    ulid.ULID
	Name  string
	Scale scale.Factor
	Pages int

	seq     *sequencer.Sequencer
	pipe    *channel.Pipe
	cancel  context.CancelFunc
	done    chan struct{}
	summary database.SessionSummary

	// cancelRequested is set when Cancel arrives before seq exists
	cancelRequested bool
}

// Done is closed once the session's job record is final
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Summary is only meaningful after Done is closed
func (s *Session) Summary() database.SessionSummary {
	<-s.done
	return s.summary
}

// SessionManager runs the rendering context and the host for one document at a time
type SessionManager struct {
	db     database.Repository
	config config.ServerConfig
	host   *host.Host
	raster *pdfrenderer.Rasterizer

	newRenderer RendererFactory
	renderer    pdfrenderer.Renderer

	mu     sync.Mutex
	active *Session
}

// NewSessionManager places pages on the database surface. newRenderer may be
// nil, in which case pdfrenderer.NewRenderer is used.
func NewSessionManager(db database.Repository, cfg config.ServerConfig, newRenderer RendererFactory) *SessionManager {
	if newRenderer == nil {
		newRenderer = pdfrenderer.NewRenderer
	}
	controller := host.NewController(db.Surface(), cfg.SoftMaxDimension)
	return &SessionManager{
		db:          db,
		config:      cfg,
		host:        host.New(controller),
		raster:      pdfrenderer.NewRasterizer(),
		newRenderer: newRenderer,
	}
}

// Host returns the host the manager places pages with
func (m *SessionManager) Host() *host.Host {
	return m.host
}

// Active returns the running session, or nil
func (m *SessionManager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// backend returns the shared renderer, creating it on first use
func (m *SessionManager) backend() (pdfrenderer.Renderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer != nil {
		return m.renderer, nil
	}
	renderer, err := m.newRenderer(m.config.RenderBackend)
	if err != nil {
		return nil, err
	}
	m.renderer = renderer
	return renderer, nil
}

// Start validates data as a PDF, records a session job and begins inserting
// its pages. A document that cannot be parsed leaves a failed job and no
// running session.
func (m *SessionManager) Start(name string, data []byte, scaleLabel string) (*Session, error) {
	factor, err := scale.Parse(scaleLabel)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	session := &Session{Name: name, Scale: factor, done: make(chan struct{})}
	m.active = session
	m.mu.Unlock()

	job, err := m.db.CreateJob(database.JobTypeSession, fmt.Sprintf("Inserting %s at %s", name, factor))
	if err != nil {
		m.finish(session)
		return nil, fmt.Errorf("unable to create session job: %w", err)
	}
	session.ID = job.ID

	inspected, err := pdfrenderer.Inspect(name, data)
	if err != nil {
		Logger.Error("Rejected document", "name", name, "error", err)
		if dbErr := m.db.UpdateJobError(job.ID, err.Error()); dbErr != nil {
			Logger.Error("Failed to record job error", "jobID", job.ID, "error", dbErr)
		}
		m.finish(session)
		return session, err
	}
	session.Pages = inspected.PageCount()
	inspected.Close()

	if err := m.db.UpdateJobTotalSteps(job.ID, session.Pages); err != nil {
		Logger.Warn("Failed to set job total steps", "jobID", job.ID, "error", err)
	}
	if err := m.db.UpdateJobStatus(job.ID, database.JobStatusRunning, "Rendering pages"); err != nil {
		Logger.Warn("Failed to mark job running", "jobID", job.ID, "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	tracker := newProgress(m.db, job.ID, session.Pages)
	// one status message per page at most, so the host never waits on an ack
	pipe := channel.NewPipe(m.config.HostQueueSize, session.Pages+1)
	seq := sequencer.New(func() (pdfrenderer.Document, error) {
		renderer, err := m.backend()
		if err != nil {
			return nil, err
		}
		return pdfrenderer.OpenDocument(name, data, renderer)
	}, factor, m.raster, pipe.ToHost, sequencer.Options{
		Form:     codec.Binary,
		Retries:  m.config.RenderRetries,
		Observer: tracker.observe,
	})

	m.mu.Lock()
	session.seq, session.pipe, session.cancel = seq, pipe, cancel
	cancelRequested := session.cancelRequested
	m.mu.Unlock()
	if cancelRequested {
		seq.Cancel()
		cancel()
	}

	go m.run(ctx, session, tracker)
	Logger.Info("Session started", "sessionID", job.ID, "name", name, "pages", session.Pages, "scale", factor.String())
	return session, nil
}

// run wires the sequencer to the host through a fresh pipe and records the outcome
func (m *SessionManager) run(ctx context.Context, session *Session, tracker *progress) {
	defer m.finish(session)
	defer session.cancel()
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in session", "panic", r, "sessionID", session.ID)
			m.db.UpdateJobError(session.ID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	go tracker.write()

	pipe := session.pipe
	// the host keeps draining frames already queued when the session is cancelled
	hostDone := make(chan error, 1)
	go func() {
		hostDone <- m.host.Serve(context.Background(), pipe)
	}()

	acksDone := make(chan struct{})
	go func() {
		defer close(acksDone)
		for {
			msg, err := pipe.ToRenderer.Receive(context.Background())
			if err != nil {
				return
			}
			tracker.ack(msg)
		}
	}()

	result := session.seq.Run(ctx)
	pipe.ToHost.Close()
	if err := <-hostDone; err != nil {
		Logger.Error("Host stopped early", "sessionID", session.ID, "error", err)
	}
	<-acksDone
	tracker.stop()

	summary := tracker.summary()
	summary.Document = session.Name
	summary.Scale = session.Scale.String()
	summary.Pages = result.Total
	summary.Sent = result.Pages
	summary.Cursor = m.host.Controller().Layout().Cursor
	session.summary = summary

	resultJSON, err := json.Marshal(summary)
	if err != nil {
		Logger.Error("Failed to encode session summary", "error", err)
	}

	switch result.State {
	case sequencer.Done:
		err = m.db.CompleteJob(session.ID, string(resultJSON))
	case sequencer.Cancelled:
		err = m.db.UpdateJobStatus(session.ID, database.JobStatusCancelled,
			fmt.Sprintf("Cancelled after %d of %d pages", result.Pages, result.Total))
	default:
		err = m.db.UpdateJobError(session.ID, result.Err.Error())
	}
	if err != nil {
		Logger.Error("Failed to record session outcome", "sessionID", session.ID, "error", err)
	}
	Logger.Info("Session finished", "sessionID", session.ID, "state", result.State.String(),
		"sent", summary.Sent, "inserted", summary.Inserted, "failed", len(summary.Failed))
}

func (m *SessionManager) finish(session *Session) {
	m.mu.Lock()
	if m.active == session {
		m.active = nil
	}
	m.mu.Unlock()
	select {
	case <-session.done:
	default:
		close(session.done)
	}
}

// Cancel clears the active document. Pages already queued for the host are still placed.
func (m *SessionManager) Cancel() (*Session, error) {
	m.mu.Lock()
	session := m.active
	if session == nil {
		m.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	seq, cancel := session.seq, session.cancel
	if seq == nil {
		// Start is still validating the document and checks this before rendering
		session.cancelRequested = true
	}
	m.mu.Unlock()
	if seq != nil {
		seq.Cancel()
		cancel()
	}
	Logger.Info("Session cancel requested", "sessionID", session.ID)
	return session, nil
}

// Close cancels the active session, waits for it and releases the renderer
func (m *SessionManager) Close() error {
	if session, err := m.Cancel(); err == nil {
		<-session.Done()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.renderer != nil {
		errs = append(errs, m.renderer.Close())
		m.renderer = nil
	}
	errs = append(errs, m.raster.Close())
	return errors.Join(errs...)
}

// progress mirrors sequencer transitions and host acknowledgements into the
// job record. Writes happen on their own goroutine and coalesce, so a slow
// database never holds up rendering or placement.
type progress struct {
	db    database.Repository
	jobID ulid.ULID
	total int

	mu       sync.Mutex
	step     string
	inserted int
	failed   []int
	warnings []int

	dirty   chan struct{}
	stopped chan struct{}
}

func newProgress(db database.Repository, jobID ulid.ULID, total int) *progress {
	return &progress{
		db:      db,
		jobID:   jobID,
		total:   total,
		dirty:   make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

func (p *progress) percent() int {
	if p.total == 0 {
		return 0
	}
	return p.inserted * 100 / p.total
}

// mark schedules a write of the latest progress
func (p *progress) mark() {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

func (p *progress) observe(st sequencer.Status) {
	p.mu.Lock()
	p.step = st.String()
	p.mu.Unlock()
	p.mark()
}

func (p *progress) ack(msg channel.Message) {
	p.mu.Lock()
	switch msg.Type {
	case channel.ImageInserted:
		p.inserted++
		if msg.Warning != "" {
			p.warnings = append(p.warnings, msg.Index)
		}
	case channel.InsertFailed:
		p.failed = append(p.failed, msg.Index)
		Logger.Warn("Host could not place page", "index", msg.Index, "kind", msg.Failure, "error", msg.Error)
	}
	p.mu.Unlock()
	p.mark()
}

// write persists progress until stop is called
func (p *progress) write() {
	defer close(p.stopped)
	for range p.dirty {
		p.mu.Lock()
		step, percent := p.step, p.percent()
		p.mu.Unlock()
		if err := p.db.UpdateJobProgress(p.jobID, percent, step); err != nil {
			Logger.Warn("Failed to update job progress", "jobID", p.jobID, "error", err)
		}
	}
}

// stop flushes the last pending write. observe and ack must not be called afterwards.
func (p *progress) stop() {
	close(p.dirty)
	<-p.stopped
}

func (p *progress) summary() database.SessionSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return database.SessionSummary{
		Inserted: p.inserted,
		Failed:   append([]int(nil), p.failed...),
		Warnings: append([]int(nil), p.warnings...),
	}
}
