package codec

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// Decoder reconstructs entities and containers from serialized forms,
// consulting a kind registry to resolve type discriminators and to drive
// per-field coercion.
type Decoder struct {
	reg  *types.Registry
	opts Options
}

// NewDecoder returns a decoder bound to the given registry.
func NewDecoder(reg *types.Registry, opts Options) *Decoder {
	return &Decoder{reg: reg, opts: opts.withDefaults()}
}

// Decode reconstructs an entity, resolving its kind from the embedded
// "type" discriminator. Failures discard all partial results.
func (d *Decoder) Decode(f Form) (*types.Entity, error) {
	return d.DecodeAs(f, "")
}

// DecodeAs reconstructs an entity of the expected kind. When kind is
// empty the embedded discriminator decides; when both are present they
// must agree.
func (d *Decoder) DecodeAs(f Form, kind string) (*types.Entity, error) {
	rb := &rebuild{dec: d, built: make(map[string]*types.Entity)}
	e, err := rb.entity(f, kind, "$", 0)
	if err != nil {
		return nil, err
	}
	if err := rb.resolve(); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeContainer reconstructs a top-level container form. When kind is
// empty the embedded "of" key decides the element kind.
func (d *Decoder) DecodeContainer(f Form, kind string) (*types.Container, error) {
	if tn, ok := f[keyType].(string); ok && tn != containerType {
		return nil, fmt.Errorf("$: expected a container form, got type %q: %w", tn, types.ErrTypeMismatch)
	}
	of, _ := f[keyOf].(string)
	if kind == "" {
		kind = of
	} else if of != "" && of != kind {
		return nil, fmt.Errorf("$: container of %q, expected %q: %w", of, kind, types.ErrTypeMismatch)
	}
	k, err := d.reg.Lookup(kind)
	if err != nil {
		return nil, fmt.Errorf("$: %w", err)
	}

	rb := &rebuild{dec: d, built: make(map[string]*types.Entity)}
	c := types.NewContainer(k)
	if raw, ok := f[keyEntries]; ok {
		if err := rb.containerEntries(c, raw, "$", 0); err != nil {
			return nil, err
		}
	}
	if err := rb.resolve(); err != nil {
		return nil, err
	}
	return c, nil
}

// rebuild carries one decode traversal: the entities reconstructed so far,
// keyed by their stable identifier, and the back-references waiting for
// the second resolution pass.
type rebuild struct {
	dec     *Decoder
	built   map[string]*types.Entity
	pending []pendingRef
	nodes   int
}

// pendingRef is a back-reference marker found during the walk. assign
// patches the reconstructed target into place once it exists.
type pendingRef struct {
	target string
	path   string
	assign func(*types.Entity) error
}

// resolve runs the second pass: every marker is patched to its
// reconstructed entity, or the decode fails with ErrDanglingReference.
func (rb *rebuild) resolve() error {
	for _, p := range rb.pending {
		t, ok := rb.built[p.target]
		if !ok {
			return fmt.Errorf("%s: reference %q: %w", p.path, p.target, ErrDanglingReference)
		}
		if err := p.assign(t); err != nil {
			return fmt.Errorf("%s: reference %q: %w", p.path, p.target, err)
		}
	}
	return nil
}

func (rb *rebuild) entity(f Form, expect, path string, depth int) (*types.Entity, error) {
	if depth > rb.dec.opts.MaxDepth {
		return nil, fmt.Errorf("%s: depth %d: %w", path, depth, ErrLimitExceeded)
	}
	rb.nodes++
	if rb.nodes > rb.dec.opts.MaxNodes {
		return nil, fmt.Errorf("%s: %d nodes: %w", path, rb.nodes, ErrLimitExceeded)
	}

	kindName, _ := f[keyType].(string)
	switch {
	case kindName == "" && expect == "":
		return nil, fmt.Errorf("%s: no type discriminator: %w", path, types.ErrUnknownKind)
	case kindName == "":
		kindName = expect
	case expect != "" && kindName != expect:
		return nil, fmt.Errorf("%s: type %q, expected %q: %w", path, kindName, expect, types.ErrTypeMismatch)
	}
	k, err := rb.dec.reg.Lookup(kindName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	name, err := cast.ToStringE(f[keyName])
	if err != nil || name == "" {
		return nil, fmt.Errorf("%s: entity name: %w", path, types.ErrInvalidName)
	}
	e, err := k.New(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if raw, ok := f[keyActive]; ok {
		active, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: expected bool, got %T: %w", path, keyActive, raw, types.ErrTypeMismatch)
		}
		e.SetActive(active)
	}

	// First registration of an identifier wins; later occurrences of the
	// same kind/name pair decode as distinct objects but markers always
	// patch to the first.
	id := refID(kindName, name)
	if _, exists := rb.built[id]; !exists {
		rb.built[id] = e
	}

	for _, fd := range k.Fields() {
		raw, ok := f[fd.Name]
		if !ok {
			if fd.Required && fd.Default == nil {
				return nil, fmt.Errorf("%s: %s: %w", path, fd.Name, types.ErrMissingAttribute)
			}
			continue
		}
		if err := rb.attr(e, fd, raw, path+"."+fd.Name, depth); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// attr decodes one attribute value into the entity. Back-reference
// markers register a pending patch instead of a value.
func (rb *rebuild) attr(e *types.Entity, fd types.Field, raw any, path string, depth int) error {
	switch fd.Type {
	case types.TypeEntity:
		sub, ok := toForm(raw)
		if !ok {
			return fmt.Errorf("%s: expected nested form, got %T: %w", path, raw, types.ErrTypeMismatch)
		}
		if target, isRef := refTarget(sub); isRef {
			attr := fd.Name
			rb.pending = append(rb.pending, pendingRef{
				target: target,
				path:   path,
				assign: func(t *types.Entity) error { return e.Set(attr, t) },
			})
			return nil
		}
		child, err := rb.entity(sub, fd.ElemKind, path, depth+1)
		if err != nil {
			return err
		}
		return e.Set(fd.Name, child)

	case types.TypeContainer:
		k, err := rb.dec.reg.Lookup(fd.ElemKind)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		c := types.NewContainer(k)
		if err := rb.containerEntries(c, raw, path, depth); err != nil {
			return err
		}
		return e.Set(fd.Name, c)

	default:
		v, err := coerce(fd, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return e.Set(fd.Name, v)
	}
}

// containerEntries decodes container entries from either an ordered list
// of forms or a name-keyed mapping (accepted for interoperability; keys
// are read in sorted order since Go maps carry no order).
func (rb *rebuild) containerEntries(c *types.Container, raw any, path string, depth int) error {
	add := func(sub Form, entryPath string) error {
		if target, isRef := refTarget(sub); isRef {
			// Reserve the entry's slot with a placeholder so the
			// resolution pass patches in place instead of appending the
			// referenced entity out of order.
			_, name, ok := splitRefID(target)
			if !ok {
				return fmt.Errorf("%s: malformed reference %q: %w", entryPath, target, ErrDanglingReference)
			}
			placeholder, err := c.Kind().New(name)
			if err != nil {
				return fmt.Errorf("%s: %w", entryPath, err)
			}
			if err := c.Add(placeholder); err != nil {
				return fmt.Errorf("%s: %w", entryPath, err)
			}
			rb.pending = append(rb.pending, pendingRef{
				target: target,
				path:   entryPath,
				assign: c.Put,
			})
			return nil
		}
		e, err := rb.entity(sub, c.Kind().Name(), entryPath, depth+1)
		if err != nil {
			return err
		}
		if err := c.Add(e); err != nil {
			return fmt.Errorf("%s: %w", entryPath, err)
		}
		return nil
	}

	switch entries := raw.(type) {
	case []any:
		for i, elem := range entries {
			sub, ok := toForm(elem)
			if !ok {
				return fmt.Errorf("%s[%d]: expected nested form, got %T: %w", path, i, elem, types.ErrTypeMismatch)
			}
			if err := add(sub, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sub, ok := toForm(entries[name])
			if !ok {
				return fmt.Errorf("%s[%q]: expected nested form, got %T: %w", path, name, entries[name], types.ErrTypeMismatch)
			}
			if err := add(sub, fmt.Sprintf("%s[%q]", path, name)); err != nil {
				return err
			}
		}
		return nil
	case Form:
		return rb.containerEntries(c, map[string]any(entries), path, depth)
	default:
		return fmt.Errorf("%s: expected container entries, got %T: %w", path, raw, types.ErrTypeMismatch)
	}
}

// coerce converts an interchange value to the canonical in-memory value
// for a primitive field. JSON numbers arrive as float64; integer fields
// accept them only when integral.
func coerce(fd types.Field, raw any) (any, error) {
	mismatch := func() error {
		return fmt.Errorf("expected %s, got %T (%v): %w", fd.Type, raw, raw, types.ErrTypeMismatch)
	}
	switch fd.Type {
	case types.TypeString:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, mismatch()
		}
		return s, nil
	case types.TypeInt:
		if f, ok := raw.(float64); ok && f != math.Trunc(f) {
			return nil, mismatch()
		}
		n, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, mismatch()
		}
		return n, nil
	case types.TypeFloat:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, mismatch()
		}
		return f, nil
	case types.TypeBool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, mismatch()
		}
		return b, nil
	case types.TypeTimestamp:
		t, err := cast.ToTimeE(raw)
		if err != nil {
			return nil, mismatch()
		}
		return t, nil
	case types.TypeList:
		l, err := cast.ToSliceE(raw)
		if err != nil {
			return nil, mismatch()
		}
		return l, nil
	default:
		return nil, mismatch()
	}
}

// toForm normalizes the two map shapes a nested form can arrive in.
func toForm(raw any) (Form, bool) {
	switch m := raw.(type) {
	case Form:
		return m, true
	case map[string]any:
		return Form(m), true
	default:
		return nil, false
	}
}
