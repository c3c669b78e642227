// ABOUTME: Channel and Factory interfaces plus the ordered scheme registry.
// ABOUTME: resolve(uri) walks factories in registration order; first match wins.

package channel

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoChannelMatch indicates no registered factory recognizes the reply URI.
var ErrNoChannelMatch = errors.New("no channel factory matches uri")

// Channel delivers one JSON-encoded message to an external destination.
type Channel interface {
	Send(ctx context.Context, payload []byte) error
}

// Factory recognizes a URI scheme and constructs channels bound to the URI's
// address. Integrators register additional factories to add transports; the
// dispatcher and approval coordinator depend only on this contract.
type Factory interface {
	Matches(uri string) bool
	Create(uri string) (Channel, error)
}

// Registry holds an ordered set of channel factories. Registration order is
// the match order, which keeps resolution deterministic when schemes overlap.
type Registry struct {
	factories []Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a factory. Not safe for concurrent use with Resolve;
// register everything during startup.
func (r *Registry) Register(f Factory) {
	r.factories = append(r.factories, f)
}

// Resolve returns a channel for the URI from the first matching factory.
func (r *Registry) Resolve(uri string) (Channel, error) {
	for _, f := range r.factories {
		if f.Matches(uri) {
			return f.Create(uri)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoChannelMatch, uri)
}
