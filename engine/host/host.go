package host

import (
	"context"
	"errors"
	"sync"

	"github.com/drummonds/pdfcanvas/engine/channel"
)

// Host consumes INSERT_IMAGE messages in arrival order and answers each
// with IMAGE_INSERTED or INSERT_FAILED
type Host struct {
	mu         sync.Mutex
	controller *Controller
}

// New creates a host around controller
func New(controller *Controller) *Host {
	return &Host{controller: controller}
}

// Controller returns the controller the host places pages with
func (h *Host) Controller() *Controller {
	return h.controller
}

// Serve processes pipe.ToHost until the rendering side closes it, then closes
// pipe.ToRenderer. Only one pipe is served at a time.
func (h *Host) Serve(ctx context.Context, pipe *channel.Pipe) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer pipe.ToRenderer.Close()

	for {
		msg, err := pipe.ToHost.Receive(ctx)
		if errors.Is(err, channel.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		var reply channel.Message
		ack, err := h.controller.OnPayload(ctx, msg)
		if err != nil {
			Logger.Error("Unable to place page", "index", msg.Index, "kind", FailureKind(err), "error", err)
			reply = channel.NewInsertFailed(msg.Index, FailureKind(err), err)
		} else {
			reply = channel.NewImageInserted(ack.Index)
			reply.Warning = ack.Warning
		}
		if err := pipe.ToRenderer.Send(ctx, reply); err != nil {
			return err
		}
	}
}
