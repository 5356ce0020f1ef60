package messagepipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrConsumerStopped is returned by Push once the consumer has stopped.
var ErrConsumerStopped = errors.New("consumer stopped")

// ChannelConsumer is an in-process source. The HTTP ingest endpoint and the
// archive export feed push into it.
type ChannelConsumer struct {
	outputChan chan Message
	doneChan   chan struct{}
	mu         sync.RWMutex
	stopped    bool
	stopOnce   sync.Once
}

func NewChannelConsumer(buffer int) *ChannelConsumer {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelConsumer{
		outputChan: make(chan Message, buffer),
		doneChan:   make(chan struct{}),
	}
}

// Push queues msg, blocking while the buffer is full until ctx ends or the
// consumer stops.
func (c *ChannelConsumer) Push(ctx context.Context, msg Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopped {
		return ErrConsumerStopped
	}
	select {
	case c.outputChan <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.doneChan:
		return ErrConsumerStopped
	}
}

func (c *ChannelConsumer) Messages() <-chan Message { return c.outputChan }

func (c *ChannelConsumer) Done() <-chan struct{} { return c.doneChan }

func (c *ChannelConsumer) Start(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-c.doneChan:
		}
	}()
	return nil
}

// Stop closes the output channel. Messages already queued are still delivered.
func (c *ChannelConsumer) Stop(_ context.Context) error {
	c.stopOnce.Do(func() {
		close(c.doneChan)
		c.mu.Lock()
		c.stopped = true
		close(c.outputChan)
		c.mu.Unlock()
	})
	return nil
}
