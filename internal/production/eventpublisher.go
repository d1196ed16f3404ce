package production

import (
	"context"
	"sync"

	"github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/core"
)

// PublishedEvent bundles a state change with its run metadata for publishing.
type PublishedEvent struct {
	Change   tapemachine.StateChange
	Metadata core.RunMetadata
}

// ChannelPublisher forwards state changes to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher struct {
	mu      sync.Mutex
	ch      chan<- PublishedEvent
	closed  bool
	dropped int
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- PublishedEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, change tapemachine.StateChange, metadata core.RunMetadata) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.ch <- PublishedEvent{Change: change, Metadata: metadata}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped++ // Non-blocking drop
		return nil
	}
}

// Dropped returns the number of events dropped on a full channel.
func (p *ChannelPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close closes the channel. Safe to call multiple times.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
