package feign

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/chadjaros/feign/errors"
)

// DispatchFactory lets callers wrap or replace the handlers a generated
// client dispatches through. It receives the effective target and the
// assembled table and returns the table to install. The default installs
// the table as is.
type DispatchFactory func(target Target, dispatch map[string]MethodHandler) map[string]MethodHandler

// Client is a generated client: a dispatch table from method config keys
// to handlers, plus identity defined by the backing Target. Instances are
// immutable and safe for concurrent use.
type Client struct {
	target   Target
	dispatch map[string]MethodHandler
}

// Target returns the backing target.
func (c *Client) Target() Target {
	return c.target
}

// Methods returns the sorted config keys the client can invoke.
func (c *Client) Methods() []string {
	keys := make([]string, 0, len(c.dispatch))
	for key := range c.dispatch {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Invoke calls the method identified by its config key with a positional
// argument array, decoding the result into out. out may be nil for
// methods without a result.
func (c *Client) Invoke(ctx context.Context, key string, out interface{}, args ...interface{}) error {
	handler, has := c.dispatch[key]
	if !has {
		return errors.Precondition("no method with config key %s on %s", key, c.target.Service())
	}
	return handler.Invoke(ctx, out, args...)
}

// Equal reports whether other is a generated client backed by an equal
// Target. Anything that is not a generated client compares unequal, the
// check never fails on type.
func (c *Client) Equal(other interface{}) bool {
	o, ok := other.(*Client)
	if !ok || o == nil {
		return false
	}
	return TargetsEqual(c.target, o.target)
}

// Hash returns a hash of the client's identity, consistent with Equal.
func (c *Client) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(c.target.Service()))
	h.Write([]byte{0})
	h.Write([]byte(c.target.URL()))
	h.Write([]byte{0})
	h.Write([]byte(c.target.Key()))
	return h.Sum64()
}

func (c *Client) String() string {
	return fmt.Sprintf("%v", c.target)
}
