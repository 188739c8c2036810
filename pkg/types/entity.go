package types

import (
	"fmt"
	"time"
)

// Entity is a named, typed record. Its identity within a container is its
// name; its shape is dictated by its Kind; every attribute write is
// validated against the kind's declaration.
//
// Construct entities through Kind.New so defaults and the active flag are
// initialized; a zero Entity is not usable.
type Entity struct {
	name   string
	active bool
	kind   *Kind
	attrs  map[string]any
}

// Name returns the entity's identity key.
func (e *Entity) Name() string { return e.name }

// Kind returns the entity's schema.
func (e *Entity) Kind() *Kind { return e.kind }

// Active reports whether the entity is flagged active.
func (e *Entity) Active() bool { return e.active }

// SetActive sets the active flag.
func (e *Entity) SetActive(active bool) { e.active = active }

// Get returns the value of a declared attribute.
// Returns ErrUnknownAttribute for names the kind does not declare and
// ErrMissingAttribute for declared attributes that have no value yet.
func (e *Entity) Get(attr string) (any, error) {
	if _, ok := e.kind.Field(attr); !ok {
		return nil, fmt.Errorf("%s.%s: %w", e.kind.name, attr, ErrUnknownAttribute)
	}
	v, ok := e.attrs[attr]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", e.kind.name, attr, ErrMissingAttribute)
	}
	return v, nil
}

// Set validates v against the attribute's declared type and stores it.
// Integer and float values are canonicalized to int64 and float64.
// On error the entity is unchanged.
func (e *Entity) Set(attr string, v any) error {
	f, ok := e.kind.Field(attr)
	if !ok {
		return fmt.Errorf("%s.%s: %w", e.kind.name, attr, ErrUnknownAttribute)
	}
	norm, err := normalizeValue(f, v)
	if err != nil {
		return fmt.Errorf("%s: %w", e.kind.name, err)
	}
	e.attrs[attr] = norm
	return nil
}

// Update applies a set of attribute writes atomically: every value is
// validated before any is stored, so a failed update leaves the entity in
// its prior state.
func (e *Entity) Update(attrs map[string]any) error {
	staged := make(map[string]any, len(attrs))
	for name, v := range attrs {
		f, ok := e.kind.Field(name)
		if !ok {
			return fmt.Errorf("%s.%s: %w", e.kind.name, name, ErrUnknownAttribute)
		}
		norm, err := normalizeValue(f, v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.kind.name, err)
		}
		staged[name] = norm
	}
	for name, v := range staged {
		e.attrs[name] = v
	}
	return nil
}

// Clear resets a declared attribute to its default, or removes it when the
// field declares no default.
func (e *Entity) Clear(attr string) error {
	f, ok := e.kind.Field(attr)
	if !ok {
		return fmt.Errorf("%s.%s: %w", e.kind.name, attr, ErrUnknownAttribute)
	}
	if f.Default != nil {
		e.attrs[attr] = f.Default
	} else {
		delete(e.attrs, attr)
	}
	return nil
}

// Attrs returns a copy of the set attribute values.
func (e *Entity) Attrs() map[string]any {
	out := make(map[string]any, len(e.attrs))
	for k, v := range e.attrs {
		out[k] = v
	}
	return out
}

// Equal reports structural equality: same kind, name, active flag, and
// attribute values. Entity- and container-valued attributes are compared
// structurally, so mutually recursive graphs compare by identity path
// rather than looping.
func (e *Entity) Equal(other *Entity) bool {
	return e.equal(other, make(map[*Entity]*Entity))
}

func (e *Entity) equal(other *Entity, seen map[*Entity]*Entity) bool {
	if e == nil || other == nil {
		return e == other
	}
	if prev, ok := seen[e]; ok {
		// Already on the comparison path; require the same pairing.
		return prev == other
	}
	seen[e] = other
	defer delete(seen, e)

	if e.kind.name != other.kind.name || e.name != other.name || e.active != other.active {
		return false
	}
	if len(e.attrs) != len(other.attrs) {
		return false
	}
	for name, v := range e.attrs {
		ov, ok := other.attrs[name]
		if !ok || !valuesEqual(v, ov, seen) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any, seen map[*Entity]*Entity) bool {
	switch av := a.(type) {
	case *Entity:
		bv, ok := b.(*Entity)
		return ok && av.equal(bv, seen)
	case *Container:
		bv, ok := b.(*Container)
		if !ok || av.kind.name != bv.kind.name || len(av.entries) != len(bv.entries) {
			return false
		}
		for i, e := range av.entries {
			if !e.equal(bv.entries[i], seen) {
				return false
			}
		}
		return true
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i], seen) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
