package filter

import "fmt"

// InvalidFilterValueError is returned when an operator receives a value
// that cannot take the operator's shape.
type InvalidFilterValueError struct {
	Field    string
	Operator string
	Value    any
}

func (e *InvalidFilterValueError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("invalid filter value for %s: %v", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid filter value for %s[%s]: %v", e.Field, e.Operator, e.Value)
}

// UnsupportedOperatorError is returned for `field[op]` keys whose op is not recognised.
type UnsupportedOperatorError struct {
	Field    string
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator: %s[%s]", e.Field, e.Operator)
}
