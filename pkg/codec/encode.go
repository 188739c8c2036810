package codec

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// Encoder serializes entities and containers. An Encoder is stateless
// between calls and safe for reuse; each Encode runs its own traversal.
type Encoder struct {
	opts Options
}

// NewEncoder returns an encoder with the given options.
func NewEncoder(opts Options) *Encoder {
	return &Encoder{opts: opts.withDefaults()}
}

// Encode serializes an entity to its form: the reserved name/isactive/type
// keys followed by every set attribute in schema declaration order.
func (enc *Encoder) Encode(e *types.Entity) (Form, error) {
	if e == nil {
		return nil, fmt.Errorf("nil entity: %w", types.ErrTypeMismatch)
	}
	w := newWalker(enc.opts)
	f, err := w.entity(e, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// EncodeContainer serializes a container as a self-describing form with
// the container discriminator, the element kind, and the entries in
// insertion order.
func (enc *Encoder) EncodeContainer(c *types.Container) (Form, error) {
	if c == nil {
		return nil, fmt.Errorf("nil container: %w", types.ErrTypeMismatch)
	}
	w := newWalker(enc.opts)
	entries, err := w.container(c, 0)
	if err != nil {
		return nil, err
	}
	return Form{
		keyType:    containerType,
		keyOf:      c.Kind().Name(),
		keyEntries: entries,
	}, nil
}

// walker carries the per-traversal bookkeeping: the on-path set that
// breaks cycles and the completed map that deduplicates shared subgraphs.
// These are deliberately separate sets; conflating them would turn every
// diamond into a false cycle.
type walker struct {
	opts   Options
	onPath map[*types.Entity]struct{}
	done   map[*types.Entity]string
	nodes  int
}

func newWalker(opts Options) *walker {
	return &walker{
		opts:   opts,
		onPath: make(map[*types.Entity]struct{}),
		done:   make(map[*types.Entity]string),
	}
}

func (w *walker) entity(e *types.Entity, depth int) (Form, error) {
	id := refID(e.Kind().Name(), e.Name())

	if _, on := w.onPath[e]; on {
		if w.opts.OnCycle == types.CycleError {
			return nil, fmt.Errorf("%s: %w", id, ErrCyclicReference)
		}
		return refForm(id), nil
	}
	if w.opts.DedupShared {
		if doneID, ok := w.done[e]; ok {
			return refForm(doneID), nil
		}
	}

	if depth > w.opts.MaxDepth {
		return nil, fmt.Errorf("%s: depth %d: %w", id, depth, ErrLimitExceeded)
	}
	w.nodes++
	if w.nodes > w.opts.MaxNodes {
		return nil, fmt.Errorf("%s: %d nodes: %w", id, w.nodes, ErrLimitExceeded)
	}

	w.onPath[e] = struct{}{}
	defer delete(w.onPath, e)

	f := Form{
		keyName:   e.Name(),
		keyActive: e.Active(),
		keyType:   e.Kind().Name(),
	}
	attrs := e.Attrs()
	for _, fd := range e.Kind().Fields() {
		v, ok := attrs[fd.Name]
		if !ok {
			continue
		}
		ev, err := w.value(v, depth)
		if err != nil {
			// Wrapping per level yields the object path in the message.
			return nil, fmt.Errorf("%s.%s: %w", id, fd.Name, err)
		}
		f[fd.Name] = ev
	}

	if w.opts.DedupShared {
		w.done[e] = id
	}
	return f, nil
}

func (w *walker) container(c *types.Container, depth int) ([]any, error) {
	entries := make([]any, 0, c.Len())
	for _, e := range c.Entities() {
		f, err := w.entity(e, depth+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, f)
	}
	return entries, nil
}

func (w *walker) value(v any, depth int) (any, error) {
	switch val := v.(type) {
	case *types.Entity:
		return w.entity(val, depth+1)
	case *types.Container:
		return w.container(val, depth)
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case []any:
		out := make([]any, len(val))
		copy(out, val)
		return out, nil
	default:
		// Primitives were canonicalized by pkg/types on the way in.
		return val, nil
	}
}
