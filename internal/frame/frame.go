// Package frame records and submits the per-frame clear pass on a HAL queue.
//
// Every submission returns the queue's submission index as a Marker. A
// caller waits for a specific frame by polling the queue until its
// completed index reaches that Marker.
package frame

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultTimeout bounds a wait when the caller passes zero.
const DefaultTimeout = 5 * time.Second

// pollInterval is the sleep between completion polls.
const pollInterval = 100 * time.Microsecond

// Marker identifies a submission. The zero Marker is never issued and
// waiting on it returns immediately.
type Marker uint64

// inFlight is a command buffer kept alive until its submission completes.
type inFlight struct {
	marker Marker
	cmdBuf hal.CommandBuffer
}

// Submitter encodes clear passes and submits them to a queue.
// It is not safe for concurrent use.
type Submitter struct {
	device    hal.Device
	queue     hal.Queue
	last      Marker
	pending   []inFlight
	destroyed bool
}

// New creates a Submitter for a device and its queue.
func New(device hal.Device, queue hal.Queue) (*Submitter, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Submitter{device: device, queue: queue}, nil
}

// Clear records a render pass that clears view to color and submits it.
// The returned Marker is reached when the GPU has finished the pass.
func (s *Submitter) Clear(view hal.TextureView, color gputypes.Color, label string) (Marker, error) {
	if s.destroyed {
		return 0, ErrDestroyed
	}
	if view == nil {
		return 0, ErrNilView
	}

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label + "_encoder",
	})
	if err != nil {
		return 0, fmt.Errorf("frame: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return 0, fmt.Errorf("frame: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: color,
		}},
	})
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return 0, fmt.Errorf("frame: end encoding: %w", err)
	}

	index, err := s.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		s.device.FreeCommandBuffer(cmdBuf)
		return 0, fmt.Errorf("frame: submit: %w", err)
	}
	m := Marker(index)
	s.pending = append(s.pending, inFlight{marker: m, cmdBuf: cmdBuf})
	s.last = m
	return m, nil
}

// Wait blocks until the submission identified by m has completed.
// A zero timeout uses DefaultTimeout.
func (s *Submitter) Wait(m Marker, timeout time.Duration) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if m == 0 {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	deadline := time.Now().Add(timeout)
	for {
		completed := Marker(s.queue.PollCompleted())
		if completed >= m {
			s.reclaim(completed)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: marker %d, completed %d after %v", ErrTimeout, m, completed, timeout)
		}
		time.Sleep(pollInterval)
	}
}

// reclaim frees command buffers whose submissions have completed.
func (s *Submitter) reclaim(completed Marker) {
	keep := s.pending[:0]
	for _, f := range s.pending {
		if f.marker <= completed {
			s.device.FreeCommandBuffer(f.cmdBuf)
			continue
		}
		keep = append(keep, f)
	}
	s.pending = keep
}

// Flush waits for the most recent submission.
func (s *Submitter) Flush(timeout time.Duration) error {
	return s.Wait(s.last, timeout)
}

// Last returns the Marker of the most recent submission.
func (s *Submitter) Last() Marker {
	return s.last
}

// Pending returns the number of submissions not yet seen complete.
func (s *Submitter) Pending() int {
	return len(s.pending)
}

// Destroy frees any command buffers still held. Callers flush first. It is
// safe to call more than once.
func (s *Submitter) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, f := range s.pending {
		s.device.FreeCommandBuffer(f.cmdBuf)
	}
	s.pending = nil
}
