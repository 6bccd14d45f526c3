package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind tags the shape held by a Node.
type Kind uint8

const (
	// KindNull marks an absent or explicitly null value.
	KindNull Kind = iota
	// KindScalar marks a string, bool, integer or float value.
	KindScalar
	// KindSequence marks an ordered list of nodes.
	KindSequence
	// KindMapping marks a string-keyed collection of nodes.
	KindMapping
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "null"
	}
}

// ErrUnsupportedValue is returned when a decoded value has no Node representation.
var ErrUnsupportedValue = errors.New("unsupported configuration value")

// Node is an immutable configuration value. Methods that change a node return a
// new node and leave the receiver untouched, so nodes can be shared freely.
type Node struct {
	kind   Kind
	scalar any
	items  []Node
	fields map[string]Node
}

// Null returns the null node.
func Null() Node { return Node{} }

// Scalar wraps a string, bool, integer or float value.
func Scalar(v any) Node {
	if v == nil {
		return Node{}
	}
	return Node{kind: KindScalar, scalar: v}
}

// String wraps a string scalar.
func String(s string) Node { return Node{kind: KindScalar, scalar: s} }

// Sequence builds a sequence node from the provided items.
func Sequence(items ...Node) Node {
	return Node{kind: KindSequence, items: append([]Node{}, items...)}
}

// Strings builds a sequence of string scalars.
func Strings(values ...string) Node {
	items := make([]Node, len(values))
	for i, v := range values {
		items[i] = String(v)
	}
	return Node{kind: KindSequence, items: items}
}

// Mapping builds a mapping node. The input map is copied.
func Mapping(fields map[string]Node) Node {
	out := make(map[string]Node, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return Node{kind: KindMapping, fields: out}
}

// FromAny converts decoder output (maps, slices and scalars) into a Node.
func FromAny(v any) (Node, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case Node:
		return val, nil
	case string, bool, float64, float32:
		return Scalar(val), nil
	case int:
		return Scalar(val), nil
	case int64:
		return Scalar(int(val)), nil
	case int32:
		return Scalar(int(val)), nil
	case uint64:
		if val > math.MaxInt64 {
			return Node{}, fmt.Errorf("%w: integer %d overflows", ErrUnsupportedValue, val)
		}
		return Scalar(int(val)), nil
	case time.Time:
		return String(val.Format(time.RFC3339)), nil
	case []string:
		return Strings(val...), nil
	case []any:
		items := make([]Node, len(val))
		for i, item := range val {
			n, err := FromAny(item)
			if err != nil {
				return Node{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = n
		}
		return Node{kind: KindSequence, items: items}, nil
	case map[string]any:
		fields := make(map[string]Node, len(val))
		for k, item := range val {
			n, err := FromAny(item)
			if err != nil {
				return Node{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = n
		}
		return Node{kind: KindMapping, fields: fields}, nil
	case map[any]any:
		fields := make(map[string]Node, len(val))
		for k, item := range val {
			key := fmt.Sprint(k)
			n, err := FromAny(item)
			if err != nil {
				return Node{}, fmt.Errorf("%s: %w", key, err)
			}
			fields[key] = n
		}
		return Node{kind: KindMapping, fields: fields}, nil
	default:
		return Node{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Kind reports the node's shape.
func (n Node) Kind() Kind { return n.kind }

// IsNull reports whether the node is null.
func (n Node) IsNull() bool { return n.kind == KindNull }

// IsMapping reports whether the node is a mapping.
func (n Node) IsMapping() bool { return n.kind == KindMapping }

// IsSequence reports whether the node is a sequence.
func (n Node) IsSequence() bool { return n.kind == KindSequence }

// Len returns the number of items or fields, zero for scalars and null.
func (n Node) Len() int {
	switch n.kind {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.fields)
	default:
		return 0
	}
}

// Field returns a direct child of a mapping node.
func (n Node) Field(key string) (Node, bool) {
	if n.kind != KindMapping {
		return Node{}, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Has reports whether a mapping holds a non-null value for key.
func (n Node) Has(key string) bool {
	v, ok := n.Field(key)
	return ok && !v.IsNull()
}

// Lookup walks nested mappings along path.
func (n Node) Lookup(path ...string) (Node, bool) {
	current := n
	for _, part := range path {
		next, ok := current.Field(part)
		if !ok {
			return Node{}, false
		}
		current = next
	}
	return current, true
}

// Keys returns the mapping keys in sorted order.
func (n Node) Keys() []string {
	if n.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns a copy of a sequence's items.
func (n Node) Items() []Node {
	if n.kind != KindSequence {
		return nil
	}
	return append([]Node(nil), n.items...)
}

// With returns a copy of the mapping with key set to v. A non-mapping receiver
// is treated as an empty mapping.
func (n Node) With(key string, v Node) Node {
	fields := make(map[string]Node, len(n.fields)+1)
	if n.kind == KindMapping {
		for k, existing := range n.fields {
			fields[k] = existing
		}
	}
	fields[key] = v
	return Node{kind: KindMapping, fields: fields}
}

// WithPath sets a nested value, creating intermediate mappings.
func (n Node) WithPath(v Node, path ...string) Node {
	if len(path) == 0 {
		return v
	}
	child, _ := n.Field(path[0])
	return n.With(path[0], child.WithPath(v, path[1:]...))
}

// Without returns a copy of the mapping lacking key.
func (n Node) Without(key string) Node {
	if n.kind != KindMapping {
		return n
	}
	fields := make(map[string]Node, len(n.fields))
	for k, existing := range n.fields {
		if k != key {
			fields[k] = existing
		}
	}
	return Node{kind: KindMapping, fields: fields}
}

// Append returns a copy of the sequence with items appended. A null receiver
// behaves as an empty sequence.
func (n Node) Append(items ...Node) Node {
	out := make([]Node, 0, len(n.items)+len(items))
	if n.kind == KindSequence {
		out = append(out, n.items...)
	}
	out = append(out, items...)
	return Node{kind: KindSequence, items: out}
}

// Value returns the raw scalar value, or nil for non-scalars.
func (n Node) Value() any {
	if n.kind != KindScalar {
		return nil
	}
	return n.scalar
}

// AsString returns the scalar as a string. Numbers and booleans are formatted.
func (n Node) AsString() (string, bool) {
	if n.kind != KindScalar {
		return "", false
	}
	switch v := n.scalar.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

// AsBool returns a boolean scalar. Strings "true"/"false" are accepted.
func (n Node) AsBool() (bool, bool) {
	if n.kind != KindScalar {
		return false, false
	}
	switch v := n.scalar.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	default:
		return false, false
	}
}

// AsInt returns an integral scalar.
func (n Node) AsInt() (int, bool) {
	if n.kind != KindScalar {
		return 0, false
	}
	switch v := n.scalar.(type) {
	case int:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return int(v), true
		}
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	}
	return 0, false
}

// AsStrings returns the items of a sequence of scalars as strings.
func (n Node) AsStrings() ([]string, bool) {
	if n.kind != KindSequence {
		return nil, false
	}
	out := make([]string, 0, len(n.items))
	for _, item := range n.items {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Interface converts the node back into plain Go values (map[string]any, []any
// and scalars), suitable for JSON encoding.
func (n Node) Interface() any {
	switch n.kind {
	case KindScalar:
		return n.scalar
	case KindSequence:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(n.fields))
		for k, v := range n.fields {
			out[k] = v.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality.
func (n Node) Equal(o Node) bool {
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindNull:
		return true
	case KindScalar:
		return n.scalar == o.scalar
	case KindSequence:
		if len(n.items) != len(o.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		if len(n.fields) != len(o.fields) {
			return false
		}
		for k, v := range n.fields {
			ov, ok := o.fields[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	}
}

// String renders the node in a compact, deterministic form.
func (n Node) String() string {
	switch n.kind {
	case KindScalar:
		s, _ := n.AsString()
		return s
	case KindSequence:
		out := "["
		for i, item := range n.items {
			if i > 0 {
				out += ", "
			}
			out += item.String()
		}
		return out + "]"
	case KindMapping:
		out := "{"
		for i, k := range n.Keys() {
			if i > 0 {
				out += ", "
			}
			out += k + ": " + n.fields[k].String()
		}
		return out + "}"
	default:
		return "null"
	}
}
