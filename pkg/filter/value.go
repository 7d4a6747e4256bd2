package filter

import (
	"fmt"
	"sort"
	"strconv"
)

// Value is one query parameter value. It is always a Scalar, a List or a Nested map.
type Value interface {
	isValue()
}

// Scalar is a single string value, e.g. `?deviceName=Woodford`.
type Scalar string

// List is produced by repeating a key, e.g. `?role=admin&role=teacher`.
type List []string

// Nested is the bracket-free object form, e.g. `createdAt={gte: "2021-01-01"}`.
type Nested struct {
	Params
}

func (Scalar) isValue() {}
func (List) isValue()   {}
func (Nested) isValue() {}

// Params is an insertion-ordered parameter map.
type Params struct {
	keys   []string
	values map[string]Value
}

func NewParams() Params {
	return Params{values: make(map[string]Value)}
}

// Set stores v under key. Overwriting keeps the key's original position.
func (p *Params) Set(key string, v Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Add appends a raw string under key; a repeated key turns into a List.
func (p *Params) Add(key, raw string) {
	switch cur := p.values[key].(type) {
	case nil:
		p.Set(key, Scalar(raw))
	case Scalar:
		p.Set(key, List{string(cur), raw})
	case List:
		p.Set(key, append(cur, raw))
	default:
		p.Set(key, Scalar(raw))
	}
}

func (p Params) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// String returns the scalar value for key, or the first item of a List.
func (p Params) String(key string) string {
	switch v := p.values[key].(type) {
	case Scalar:
		return string(v)
	case List:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func (p *Params) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p Params) Len() int {
	return len(p.keys)
}

// Merge returns a copy of p overlaid with other. Keys of other that already
// exist in p replace the value in place.
func (p Params) Merge(other Params) Params {
	out := NewParams()
	for _, k := range p.keys {
		out.Set(k, p.values[k])
	}
	for _, k := range other.keys {
		out.Set(k, other.values[k])
	}
	return out
}

// Pick returns a copy of p restricted to keys accepted by keep.
func (p Params) Pick(keep func(key string) bool) Params {
	out := NewParams()
	for _, k := range p.keys {
		if keep(k) {
			out.Set(k, p.values[k])
		}
	}
	return out
}

// FromMap converts a decoded JSON object into Params. Map keys are sorted
// so the result does not depend on Go map iteration order.
func FromMap(m map[string]any) (Params, error) {
	p := NewParams()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := valueOf(k, m[k])
		if err != nil {
			return Params{}, err
		}
		p.Set(k, v)
	}
	return p, nil
}

func valueOf(field string, raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return Scalar(v), nil
	case bool:
		return Scalar(strconv.FormatBool(v)), nil
	case float64:
		return Scalar(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case int:
		return Scalar(strconv.Itoa(v)), nil
	case int64:
		return Scalar(strconv.FormatInt(v, 10)), nil
	case []string:
		return List(v), nil
	case []any:
		items := make(List, 0, len(v))
		for _, item := range v {
			s, err := valueOf(field, item)
			if err != nil {
				return nil, err
			}
			scalar, ok := s.(Scalar)
			if !ok {
				return nil, &InvalidFilterValueError{Field: field, Value: raw}
			}
			items = append(items, string(scalar))
		}
		return items, nil
	case map[string]any:
		nested, err := FromMap(v)
		if err != nil {
			return nil, err
		}
		return Nested{nested}, nil
	default:
		return nil, &InvalidFilterValueError{Field: field, Value: fmt.Sprintf("%T", raw)}
	}
}
