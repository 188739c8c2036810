package codec

import "github.com/mesh-intelligence/satchel/pkg/types"

// Default traversal bounds. Graphs deeper or larger than these fail with
// ErrLimitExceeded rather than exhausting memory on adversarial input.
const (
	DefaultMaxDepth = 1000
	DefaultMaxNodes = 1 << 20
)

// Options control traversal policy for both directions of the codec.
// The zero value means: emit markers on cycles, no shared-subgraph
// deduplication, default bounds.
type Options struct {
	// OnCycle selects the cycle policy: types.CycleMark emits a "$ref"
	// marker in place of an entity already on the traversal path;
	// types.CycleError fails the encode with ErrCyclicReference.
	OnCycle string

	// DedupShared, when set, emits a "$ref" marker for entities that were
	// already fully serialized elsewhere in the graph, so diamond-shaped
	// sharing is reconstructed as one shared entity instead of two copies.
	DedupShared bool

	// MaxDepth bounds recursion depth; zero means DefaultMaxDepth.
	MaxDepth int

	// MaxNodes bounds the total number of traversed nodes; zero means
	// DefaultMaxNodes.
	MaxNodes int
}

// FromConfig derives codec options from a store configuration.
func FromConfig(cfg types.Config) Options {
	return Options{
		OnCycle:     cfg.OnCycle,
		DedupShared: cfg.DedupShared,
	}
}

func (o Options) withDefaults() Options {
	if o.OnCycle == "" {
		o.OnCycle = types.CycleMark
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	return o
}
