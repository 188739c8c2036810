package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Field value types. Every declared attribute has exactly one of these.
const (
	TypeString    = "string"
	TypeInt       = "int"
	TypeFloat     = "float"
	TypeBool      = "bool"
	TypeTimestamp = "timestamp"
	TypeList      = "list"
	TypeEntity    = "entity"
	TypeContainer = "container"
)

// validFieldTypes is the set of recognized field type values.
var validFieldTypes = map[string]bool{
	TypeString:    true,
	TypeInt:       true,
	TypeFloat:     true,
	TypeBool:      true,
	TypeTimestamp: true,
	TypeList:      true,
	TypeEntity:    true,
	TypeContainer: true,
}

// Schema and validation errors.
var (
	ErrInvalidName      = errors.New("name must not be empty")
	ErrInvalidField     = errors.New("invalid field declaration")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrMissingAttribute = errors.New("missing required attribute")
)

// attrNameRe constrains attribute and kind names. Keeping names in this
// alphabet guarantees they can never collide with the "$ref" marker key in
// serialized forms.
var attrNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedAttrNames are serialized-form keys that declared attributes must
// not shadow.
var reservedAttrNames = map[string]bool{
	"name":     true,
	"isactive": true,
	"type":     true,
}

// Field declares one attribute of a Kind: its name, value type, an optional
// default, and whether deserialization requires it to be present.
// ElemKind names the referenced kind for entity and container fields and
// must be empty for all other types.
type Field struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Type     string `json:"type" yaml:"type" toml:"type"`
	ElemKind string `json:"of,omitempty" yaml:"of,omitempty" toml:"of,omitempty"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
}

// Kind is the schema for one entity kind: a unique name plus an ordered
// list of declared fields. Field order is the declaration order and is
// preserved by serialization.
type Kind struct {
	name   string
	fields []Field
	index  map[string]int
}

// CheckName reports ErrInvalidName when name is empty or only whitespace.
func CheckName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	return nil
}

// NewKind validates the field declarations and returns a new Kind.
// Field names must be unique, match [A-Za-z_][A-Za-z0-9_]*, and not shadow
// the reserved serialized-form keys (name, isactive, type). Defaults are
// checked against their declared type at declaration time, not first use.
func NewKind(name string, fields []Field) (*Kind, error) {
	if err := CheckName(name); err != nil {
		return nil, fmt.Errorf("kind name: %w", err)
	}
	if !attrNameRe.MatchString(name) {
		return nil, fmt.Errorf("kind %q: name must match %s: %w", name, attrNameRe.String(), ErrInvalidField)
	}

	k := &Kind{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(k.fields, fields)

	for i, f := range k.fields {
		if !attrNameRe.MatchString(f.Name) {
			return nil, fmt.Errorf("kind %q: field %q: name must match %s: %w", name, f.Name, attrNameRe.String(), ErrInvalidField)
		}
		if reservedAttrNames[f.Name] {
			return nil, fmt.Errorf("kind %q: field %q shadows a reserved key: %w", name, f.Name, ErrInvalidField)
		}
		if _, dup := k.index[f.Name]; dup {
			return nil, fmt.Errorf("kind %q: field %q declared twice: %w", name, f.Name, ErrInvalidField)
		}
		if !validFieldTypes[f.Type] {
			return nil, fmt.Errorf("kind %q: field %q: unknown type %q: %w", name, f.Name, f.Type, ErrInvalidField)
		}
		refType := f.Type == TypeEntity || f.Type == TypeContainer
		if refType && f.ElemKind == "" {
			return nil, fmt.Errorf("kind %q: field %q: %s fields need an element kind: %w", name, f.Name, f.Type, ErrInvalidField)
		}
		if !refType && f.ElemKind != "" {
			return nil, fmt.Errorf("kind %q: field %q: element kind is only valid on entity and container fields: %w", name, f.Name, ErrInvalidField)
		}
		if f.Default != nil {
			norm, err := normalizeValue(f, f.Default)
			if err != nil {
				return nil, fmt.Errorf("kind %q: field %q: default: %w", name, f.Name, err)
			}
			k.fields[i].Default = norm
		}
		k.index[f.Name] = i
	}
	return k, nil
}

// MustKind is NewKind that panics on error, for static declarations.
func MustKind(name string, fields []Field) *Kind {
	k, err := NewKind(name, fields)
	if err != nil {
		panic(err)
	}
	return k
}

// Name returns the kind name, used as the type discriminator in
// serialized forms.
func (k *Kind) Name() string { return k.name }

// Fields returns the declared fields in declaration order.
// The returned slice is a copy.
func (k *Kind) Fields() []Field {
	out := make([]Field, len(k.fields))
	copy(out, k.fields)
	return out
}

// Field returns the declaration for the named attribute.
func (k *Kind) Field(name string) (Field, bool) {
	i, ok := k.index[name]
	if !ok {
		return Field{}, false
	}
	return k.fields[i], true
}

// New constructs an entity of this kind with the given name, the active
// flag set, and every defaulted field populated.
func (k *Kind) New(name string) (*Entity, error) {
	if err := CheckName(name); err != nil {
		return nil, fmt.Errorf("entity name: %w", err)
	}
	e := &Entity{
		name:   name,
		active: true,
		kind:   k,
		attrs:  make(map[string]any, len(k.fields)),
	}
	for _, f := range k.fields {
		if f.Default != nil {
			e.attrs[f.Name] = f.Default
		}
	}
	return e, nil
}

// normalizeValue checks v against the field's declared type and returns it
// in canonical in-memory form: int64 for integers, float64 for floats,
// []any for lists. Construction and update use this strict check;
// interchange coercion (string to int and the like) is the codec's job.
func normalizeValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("attribute %q: expected %s, got nil: %w", f.Name, f.Type, ErrTypeMismatch)
	}
	switch f.Type {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint:
			return int64(n), nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		}
	case TypeFloat:
		switch n := v.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeTimestamp:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case TypeList:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			out := make([]any, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				elem, err := normalizeListElem(f, rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				out[i] = elem
			}
			return out, nil
		}
	case TypeEntity:
		if e, ok := v.(*Entity); ok && e != nil {
			if e.kind.name != f.ElemKind {
				return nil, fmt.Errorf("attribute %q: expected entity of kind %q, got %q: %w",
					f.Name, f.ElemKind, e.kind.name, ErrTypeMismatch)
			}
			return e, nil
		}
	case TypeContainer:
		if c, ok := v.(*Container); ok && c != nil {
			if c.kind.name != f.ElemKind {
				return nil, fmt.Errorf("attribute %q: expected container of kind %q, got %q: %w",
					f.Name, f.ElemKind, c.kind.name, ErrTypeMismatch)
			}
			return c, nil
		}
	}
	return nil, fmt.Errorf("attribute %q: expected %s, got %T: %w", f.Name, f.Type, v, ErrTypeMismatch)
}

// normalizeListElem canonicalizes a list element. Lists hold interchange
// primitives only (strings, numbers, bools); timestamps, entities, and
// containers go through their dedicated field types, which carry the
// schema information a round trip needs.
func normalizeListElem(f Field, v any) (any, error) {
	switch n := v.(type) {
	case string, bool, int64, float64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float32:
		return float64(n), nil
	}
	return nil, fmt.Errorf("attribute %q: list element %T is not a primitive: %w", f.Name, v, ErrTypeMismatch)
}
