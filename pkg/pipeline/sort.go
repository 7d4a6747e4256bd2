package pipeline

import (
	"strings"

	"tafe-weather-api/pkg/filter"

	"go.mongodb.org/mongo-driver/bson"
)

type SortField struct {
	Field string
	Order int
}

// SortSpec is an ordered multi-key sort, primary key first.
type SortSpec []SortField

func (s SortSpec) D() bson.D {
	d := make(bson.D, 0, len(s))
	for _, f := range s {
		d = append(d, bson.E{Key: f.Field, Value: f.Order})
	}
	return d
}

func (s SortSpec) Has(field string) bool {
	for _, f := range s {
		if f.Field == field {
			return true
		}
	}
	return false
}

// With appends field unless it is already present.
func (s SortSpec) With(field string, order int) SortSpec {
	if s.Has(field) {
		return s
	}
	return append(s[:len(s):len(s)], SortField{Field: field, Order: order})
}

// Merge appends the fields of defaults that s does not already sort by.
func (s SortSpec) Merge(defaults SortSpec) SortSpec {
	out := s
	for _, f := range defaults {
		out = out.With(f.Field, f.Order)
	}
	return out
}

// ParseSort reads `sort[field]=1|-1` keys in the order they were given.
// Any other direction value is ignored.
func ParseSort(params filter.Params) SortSpec {
	var spec SortSpec
	for _, key := range params.Keys() {
		if !strings.HasPrefix(key, "sort[") || !strings.HasSuffix(key, "]") {
			continue
		}
		field := key[len("sort[") : len(key)-1]
		if field == "" {
			continue
		}
		switch params.String(key) {
		case "1":
			spec = spec.With(field, 1)
		case "-1":
			spec = spec.With(field, -1)
		}
	}
	return spec
}
