// ABOUTME: Queue-backed reply channel for queue://<name> URIs.
// ABOUTME: Delivery is an enqueue onto the named durable queue.

package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/porterhq/agentq/internal/queue"
)

const queueScheme = "queue://"

// QueueFactory builds channels that deliver by enqueueing onto a durable
// queue owned by the shared queue engine.
type QueueFactory struct {
	engine queue.Engine
}

// NewQueueFactory creates a factory bound to the given queue engine.
func NewQueueFactory(engine queue.Engine) *QueueFactory {
	return &QueueFactory{engine: engine}
}

// Matches reports whether the URI uses the queue:// scheme.
func (f *QueueFactory) Matches(uri string) bool {
	return strings.HasPrefix(uri, queueScheme)
}

// Create builds a channel targeting the queue named in the URI. The path
// after the scheme, with any leading slash stripped, is the queue name.
func (f *QueueFactory) Create(uri string) (Channel, error) {
	name := strings.TrimPrefix(uri, queueScheme)
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return nil, errors.New("queue uri has no queue name")
	}
	return &queueChannel{engine: f.engine, name: name}, nil
}

type queueChannel struct {
	engine queue.Engine
	name   string
}

func (c *queueChannel) Send(ctx context.Context, payload []byte) error {
	if err := c.engine.CreateQueue(ctx, c.name); err != nil {
		return fmt.Errorf("ensuring reply queue %q: %w", c.name, err)
	}
	if _, err := c.engine.Send(ctx, c.name, payload, nil); err != nil {
		return fmt.Errorf("delivering to queue %q: %w", c.name, err)
	}
	return nil
}
