// Package channel is the message transport between the rendering context and
// the placement host. Messages cross it as JSON frames, so the two sides never
// share memory.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/drummonds/pdfcanvas/engine/codec"
)

// Type names a message kind on the wire
type Type string

const (
	// InsertImage carries one encoded page from the rendering context to the host
	InsertImage Type = "INSERT_IMAGE"
	// ImageInserted acknowledges a placed page. It is status only.
	ImageInserted Type = "IMAGE_INSERTED"
	// InsertFailed reports a page the host rejected. It is status only.
	InsertFailed Type = "INSERT_FAILED"
)

// ErrClosed is returned by Receive once the sender closed the channel and every frame was read
var ErrClosed = errors.New("channel closed")

// Message is the union of every message kind
type Message struct {
	Type    Type           `json:"type"`
	Index   int            `json:"index"`
	Payload *codec.Payload `json:"payload,omitempty"`
	Width   float64        `json:"width,omitempty"`
	Height  float64        `json:"height,omitempty"`
	Name    string         `json:"name,omitempty"`
	Failure string         `json:"failure,omitempty"`
	Error   string         `json:"error,omitempty"`
	// Warning is set on IMAGE_INSERTED when the page was placed despite a soft limit
	Warning string `json:"warning,omitempty"`
}

// NewInsertImage builds an INSERT_IMAGE message, name may be empty
func NewInsertImage(payload codec.Payload, width, height float64, index int, name string) Message {
	return Message{Type: InsertImage, Payload: &payload, Width: width, Height: height, Index: index, Name: name}
}

// NewImageInserted builds the acknowledgement for index
func NewImageInserted(index int) Message {
	return Message{Type: ImageInserted, Index: index}
}

// NewInsertFailed reports that the host could not place index
func NewInsertFailed(index int, failure string, err error) Message {
	msg := Message{Type: InsertFailed, Index: index, Failure: failure}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}

// Channel is a bounded FIFO of frames in one direction. Send blocks while
// the queue is full. Only the sending side may call Close.
type Channel struct {
	frames    chan []byte
	closeOnce sync.Once
}

// New creates a channel holding at most size undelivered frames
func New(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{frames: make(chan []byte, size)}
}

// Send serialises msg and queues it, waiting for room or for ctx to end
func (c *Channel) Send(ctx context.Context, msg Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to encode %s message: %w", msg.Type, err)
	}
	select {
	case c.frames <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next frame and decodes it into a fresh Message
func (c *Channel) Receive(ctx context.Context) (Message, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return Message{}, ErrClosed
		}
		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			return Message{}, fmt.Errorf("unable to decode frame: %w", err)
		}
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len is the number of frames waiting to be received
func (c *Channel) Len() int {
	return len(c.frames)
}

// Close marks the end of the stream, queued frames can still be received
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.frames)
	})
}

// Pipe is the pair of channels joining the rendering context and the host
type Pipe struct {
	// ToHost carries INSERT_IMAGE
	ToHost *Channel
	// ToRenderer carries IMAGE_INSERTED and INSERT_FAILED
	ToRenderer *Channel
}

// NewPipe creates both directions with their own bounds
func NewPipe(hostQueue, statusQueue int) *Pipe {
	return &Pipe{ToHost: New(hostQueue), ToRenderer: New(statusQueue)}
}
