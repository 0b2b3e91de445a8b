package feign

import "fmt"

// Target is the identity of a remote API: the declared service name, the
// base address requests are sent to and an opaque routing key used to
// select among backend instances. Implementations must be immutable.
type Target interface {
	// Service returns the name of the declared API interface.
	Service() string

	// URL returns the base address. Relative request paths are appended
	// to it.
	URL() string

	// Key returns the routing key, or "" if the target has none.
	Key() string
}

// KeyedTarget is a Target that supports routing key rebinding. WithKey
// returns a distinct target bound to the given key, never a mutation of
// the receiver.
type KeyedTarget interface {
	Target

	WithKey(key string) KeyedTarget
}

// HardTarget is a fixed target without routing key support.
type HardTarget struct {
	service string
	url     string
}

func NewHardTarget(service, url string) HardTarget {
	return HardTarget{service: service, url: url}
}

func (t HardTarget) Service() string { return t.service }

func (t HardTarget) URL() string { return t.url }

func (t HardTarget) Key() string { return "" }

func (t HardTarget) String() string {
	return fmt.Sprintf("%s (%s)", t.service, t.url)
}

// ShardedTarget is a target whose backend instance is selected by a
// routing key.
type ShardedTarget struct {
	service string
	url     string
	key     string
}

func NewShardedTarget(service, url, key string) ShardedTarget {
	return ShardedTarget{service: service, url: url, key: key}
}

func (t ShardedTarget) Service() string { return t.service }

func (t ShardedTarget) URL() string { return t.url }

func (t ShardedTarget) Key() string { return t.key }

func (t ShardedTarget) WithKey(key string) KeyedTarget {
	return ShardedTarget{service: t.service, url: t.url, key: key}
}

func (t ShardedTarget) String() string {
	if t.key == "" {
		return fmt.Sprintf("%s (%s)", t.service, t.url)
	}
	return fmt.Sprintf("%s (%s) key=%s", t.service, t.url, t.key)
}

// TargetsEqual reports whether two targets denote the same remote API
// instance: same service, same base address, same routing key.
func TargetsEqual(a, b Target) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Service() == b.Service() && a.URL() == b.URL() && a.Key() == b.Key()
}
