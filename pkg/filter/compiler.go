package filter

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// DefaultReserved are query keys that drive pagination and aggregation and
// never become filter fields. Any key starting with "sort[" is reserved too.
var DefaultReserved = []string{"limit", "page", "operation", "aggField", "recentMonths"}

var operatorKey = regexp.MustCompile(`^(.+)\[(.+)\]$`)

type Compiler struct {
	reserved map[string]struct{}
}

// NewCompiler returns a Compiler that skips DefaultReserved plus extra.
func NewCompiler(extra ...string) *Compiler {
	reserved := make(map[string]struct{}, len(DefaultReserved)+len(extra))
	for _, k := range DefaultReserved {
		reserved[k] = struct{}{}
	}
	for _, k := range extra {
		reserved[k] = struct{}{}
	}
	return &Compiler{reserved: reserved}
}

// IsReserved reports whether key is excluded from the compiled predicate.
// A bracketed key such as limit[gt] is reserved when its field is.
func (c *Compiler) IsReserved(key string) bool {
	if strings.HasPrefix(key, "sort[") {
		return true
	}
	field, _, _ := strings.Cut(key, "[")
	_, ok := c.reserved[field]
	return ok
}

// Compile turns params into a MongoDB predicate. Operators on the same field
// accumulate into one operator document; a later plain equality replaces the
// field entirely.
func (c *Compiler) Compile(params Params) (bson.M, error) {
	pred := bson.M{}
	operators := make(map[string]bson.M)

	for _, key := range params.Keys() {
		if c.IsReserved(key) {
			continue
		}
		value, _ := params.Get(key)

		if nested, ok := value.(Nested); ok {
			for _, opName := range nested.Keys() {
				inner, _ := nested.Get(opName)
				if err := c.compileRule(pred, operators, key, opName, inner); err != nil {
					return nil, err
				}
			}
			continue
		}

		if m := operatorKey.FindStringSubmatch(key); m != nil {
			if err := c.compileRule(pred, operators, m[1], m[2], value); err != nil {
				return nil, err
			}
			continue
		}

		delete(operators, key)
		eq, isRange := equality(value)
		pred[key] = eq
		if isRange {
			operators[key] = eq.(bson.M)
		}
	}

	return pred, nil
}

func (c *Compiler) compileRule(pred bson.M, operators map[string]bson.M, field, opName string, value Value) error {
	op, ok := ParseOperator(opName)
	if !ok {
		return &UnsupportedOperatorError{Field: field, Operator: opName}
	}

	cond, ok := operators[field]
	if !ok {
		cond = bson.M{}
		operators[field] = cond
		pred[field] = cond
	}

	if op.IsArray() {
		items, err := toArray(field, op, value)
		if err != nil {
			return err
		}
		cond[op.Key()] = items
		return nil
	}

	raw, err := toScalar(field, op, value)
	if err != nil {
		return err
	}

	t, dateOnly, isDate := ParseDate(raw)
	switch op {
	case OpEq:
		if isDate && dateOnly {
			cond["$gte"] = StartOfDay(t)
			cond["$lte"] = EndOfDay(t)
			return nil
		}
		cond[op.Key()] = Coerce(raw)
	case OpLte:
		if isDate && dateOnly {
			cond[op.Key()] = EndOfDay(t)
			return nil
		}
		cond[op.Key()] = Coerce(raw)
	case OpGt, OpGte, OpLt:
		cond[op.Key()] = Coerce(raw)
	case OpIn, OpAll:
		// handled above
	}
	return nil
}

// equality compiles a plain `field=value` pair. A date-only value widens to
// the whole day; a repeated key matches any of its values.
func equality(value Value) (any, bool) {
	switch v := value.(type) {
	case Scalar:
		t, dateOnly, ok := ParseDate(string(v))
		if !ok {
			return string(v), false
		}
		if dateOnly {
			return bson.M{"$gte": StartOfDay(t), "$lte": EndOfDay(t)}, true
		}
		return t, false
	case List:
		return bson.M{"$in": []string(v)}, true
	}
	return value, false
}

func toArray(field string, op Operator, value Value) ([]string, error) {
	switch v := value.(type) {
	case Scalar:
		return strings.Split(string(v), ","), nil
	case List:
		return []string(v), nil
	}
	return nil, &InvalidFilterValueError{Field: field, Operator: op.String(), Value: value}
}

func toScalar(field string, op Operator, value Value) (string, error) {
	if v, ok := value.(Scalar); ok {
		return string(v), nil
	}
	return "", &InvalidFilterValueError{Field: field, Operator: op.String(), Value: value}
}
