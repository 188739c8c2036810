package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Form is the serialized representation of an entity or container:
// string keys mapped to interchange-safe values.
type Form map[string]any

// Reserved form keys. Attribute names are validated by pkg/types to an
// alphabet that cannot collide with "$ref".
const (
	keyName    = "name"
	keyActive  = "isactive"
	keyType    = "type"
	keyRef     = "$ref"
	keyOf      = "of"
	keyEntries = "entries"

	// containerType is the discriminator value for top-level containers.
	containerType = "container"
)

// Traversal and reconstruction errors.
var (
	ErrCyclicReference   = errors.New("cyclic reference detected")
	ErrDanglingReference = errors.New("dangling reference")
	ErrLimitExceeded     = errors.New("graph traversal limit exceeded")
)

// refID builds the stable identifier used by back-reference markers.
func refID(kind, name string) string {
	return kind + "/" + name
}

// refForm builds a back-reference marker for the given identifier.
func refForm(id string) Form {
	return Form{keyRef: id}
}

// splitRefID splits a marker identifier into its kind and name parts.
// Kind names cannot contain a slash, so the first one is the separator.
func splitRefID(id string) (kind, name string, ok bool) {
	kind, name, ok = strings.Cut(id, "/")
	if !ok || kind == "" || name == "" {
		return "", "", false
	}
	return kind, name, true
}

// refTarget extracts the marker target from a raw form value, reporting
// whether the value is a marker at all.
func refTarget(raw map[string]any) (string, bool) {
	v, ok := raw[keyRef]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ToJSON renders the form as JSON.
func (f Form) ToJSON() ([]byte, error) {
	return json.Marshal(f)
}

// FromJSON parses a JSON object into a Form.
func FromJSON(data []byte) (Form, error) {
	var f Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}
	return f, nil
}
