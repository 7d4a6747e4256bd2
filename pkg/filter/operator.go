package filter

// Operator is one of the comparison or array operators accepted in `field[op]=value`.
type Operator int

const (
	OpEq Operator = iota + 1
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpAll
)

// ParseOperator maps a query-string operator name to an Operator.
func ParseOperator(name string) (Operator, bool) {
	switch name {
	case "eq":
		return OpEq, true
	case "gt":
		return OpGt, true
	case "gte":
		return OpGte, true
	case "lt":
		return OpLt, true
	case "lte":
		return OpLte, true
	case "in":
		return OpIn, true
	case "all":
		return OpAll, true
	}
	return 0, false
}

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	case OpIn:
		return "in"
	case OpAll:
		return "all"
	}
	return "unknown"
}

// Key is the MongoDB query operator, e.g. "$gte".
func (o Operator) Key() string {
	return "$" + o.String()
}

// IsArray reports whether the operator takes a list of values.
func (o Operator) IsArray() bool {
	return o == OpIn || o == OpAll
}
