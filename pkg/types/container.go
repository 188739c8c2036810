package types

import (
	"errors"
	"fmt"
)

// Container membership errors.
var (
	ErrDuplicateName = errors.New("duplicate entity name")
	ErrNotFound      = errors.New("entity not found")
)

// Container is an insertion-ordered ownership scope for uniquely named
// entities of a single kind. Add rejects duplicate names; Put overwrites
// an existing entry in place, keeping its original position.
type Container struct {
	kind    *Kind
	index   map[string]int
	entries []*Entity
}

// NewContainer returns an empty container scoped to the given kind.
func NewContainer(kind *Kind) *Container {
	return &Container{
		kind:  kind,
		index: make(map[string]int),
	}
}

// Kind returns the kind this container is scoped to.
func (c *Container) Kind() *Kind { return c.kind }

// Len returns the number of entities held.
func (c *Container) Len() int { return len(c.entries) }

// Has reports whether an entity with the given name is present.
func (c *Container) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Add inserts an entity at the end of the container.
// Returns ErrTypeMismatch when the entity's kind differs from the
// container's, and ErrDuplicateName when the name is already taken.
func (c *Container) Add(e *Entity) error {
	if err := c.checkKind(e); err != nil {
		return err
	}
	if _, exists := c.index[e.name]; exists {
		return fmt.Errorf("%s %q: %w", c.kind.name, e.name, ErrDuplicateName)
	}
	c.index[e.name] = len(c.entries)
	c.entries = append(c.entries, e)
	return nil
}

// Put inserts an entity, overwriting any existing entry with the same name
// in place. New names are appended.
func (c *Container) Put(e *Entity) error {
	if err := c.checkKind(e); err != nil {
		return err
	}
	if i, exists := c.index[e.name]; exists {
		c.entries[i] = e
		return nil
	}
	c.index[e.name] = len(c.entries)
	c.entries = append(c.entries, e)
	return nil
}

// Get returns the entity with the given name, or ErrNotFound.
func (c *Container) Get(name string) (*Entity, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", c.kind.name, name, ErrNotFound)
	}
	return c.entries[i], nil
}

// Remove deletes the entity with the given name, preserving the order of
// the remaining entries. Returns ErrNotFound when absent.
func (c *Container) Remove(name string) error {
	i, ok := c.index[name]
	if !ok {
		return fmt.Errorf("%s %q: %w", c.kind.name, name, ErrNotFound)
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	delete(c.index, name)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].name] = j
	}
	return nil
}

// Entities returns the held entities in insertion order.
// The returned slice is a copy.
func (c *Container) Entities() []*Entity {
	out := make([]*Entity, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the entity names in insertion order.
func (c *Container) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.name
	}
	return out
}

func (c *Container) checkKind(e *Entity) error {
	if e == nil {
		return fmt.Errorf("nil entity: %w", ErrTypeMismatch)
	}
	if e.kind.name != c.kind.name {
		return fmt.Errorf("container of %q cannot hold %q: %w", c.kind.name, e.kind.name, ErrTypeMismatch)
	}
	return nil
}
