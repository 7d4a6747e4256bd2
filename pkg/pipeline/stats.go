package pipeline

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// DefaultTieBreak orders records that share the same statistic value.
const DefaultTieBreak = "createdAt"

// StatGroup computes max, min, avg and median of Field per GroupBy value.
// Max and min also carry the Carry fields of the record that produced them.
//
// The input must be sorted by PreSort() before the group stage: the carried
// fields of max come from the first record of each group and those of min
// from the last.
type StatGroup struct {
	GroupBy  string
	Field    string
	Carry    []string
	TieBreak string
}

// Grouped reports whether results are split by GroupBy. Without grouping all
// records fall into one group whose id is null.
func (g StatGroup) Grouped() bool {
	return g.GroupBy != ""
}

func (g StatGroup) tieBreak() string {
	if g.TieBreak == "" {
		return DefaultTieBreak
	}
	return g.TieBreak
}

// PreSort orders records by Field descending, newest first among ties.
func (g StatGroup) PreSort() SortSpec {
	return SortSpec{{Field: g.Field, Order: -1}}.With(g.tieBreak(), -1)
}

// Inputs lists the fields the group stage reads, for an earlier projection.
func (g StatGroup) Inputs() bson.M {
	fields := bson.M{"_id": 0, g.Field: 1, g.tieBreak(): 1}
	if g.Grouped() {
		fields[g.GroupBy] = 1
	}
	for _, c := range g.Carry {
		fields[c] = 1
	}
	return fields
}

func (g StatGroup) GroupStage() Group {
	var id any
	if g.Grouped() {
		id = "$" + g.GroupBy
	}
	ref := "$" + g.Field

	spec := bson.D{
		{Key: "_id", Value: id},
		{Key: "max_" + g.Field, Value: bson.M{"$max": ref}},
		{Key: "min_" + g.Field, Value: bson.M{"$min": ref}},
		{Key: "avg_" + g.Field, Value: bson.M{"$avg": ref}},
		{Key: "median_" + g.Field, Value: bson.M{"$median": bson.M{"input": ref, "method": "approximate"}}},
	}
	for _, c := range g.Carry {
		spec = append(spec,
			bson.E{Key: "max_" + c, Value: bson.M{"$first": "$" + c}},
			bson.E{Key: "min_" + c, Value: bson.M{"$last": "$" + c}},
		)
	}
	return Group{Spec: spec}
}

func (g StatGroup) ProjectStage() Project {
	maxDoc := bson.M{"value": "$max_" + g.Field}
	minDoc := bson.M{"value": "$min_" + g.Field}
	for _, c := range g.Carry {
		maxDoc[c] = "$max_" + c
		minDoc[c] = "$min_" + c
	}

	spec := bson.M{
		"_id":     0,
		"grouped": bson.M{"$literal": g.Grouped()},
		g.Field: bson.M{
			"max":    maxDoc,
			"min":    minDoc,
			"avg":    bson.M{"value": "$avg_" + g.Field},
			"median": bson.M{"value": "$median_" + g.Field},
		},
	}
	if g.Grouped() {
		spec[g.GroupBy] = "$_id"
	}
	return Project{Spec: spec}
}

// Stages returns the group stage followed by the reshaping project stage.
func (g StatGroup) Stages() []Stage {
	return []Stage{g.GroupStage(), g.ProjectStage()}
}

// Extremum is a max or min value with the fields of the record it came from.
type Extremum struct {
	Value      float64        `bson:"value"`
	Provenance map[string]any `bson:",inline"`
}

func (e Extremum) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Provenance)+1)
	for k, v := range e.Provenance {
		out[k] = v
	}
	out["value"] = e.Value
	return json.Marshal(out)
}

type Measure struct {
	Value float64 `bson:"value" json:"value"`
}

type FieldStats struct {
	Max    Extremum `bson:"max" json:"max"`
	Min    Extremum `bson:"min" json:"min"`
	Avg    Measure  `bson:"avg" json:"avg"`
	Median Measure  `bson:"median" json:"median"`
}

// StatSummary is one decoded result of a StatGroup pipeline.
type StatSummary struct {
	GroupBy string
	Group   any
	Grouped bool
	Field   string
	Stats   FieldStats
}

// Decode reads one StatGroup result document.
func (g StatGroup) Decode(raw bson.Raw) (StatSummary, error) {
	s := StatSummary{GroupBy: g.GroupBy, Field: g.Field}

	if v, err := raw.LookupErr("grouped"); err == nil {
		s.Grouped, _ = v.BooleanOK()
	}
	if g.Grouped() {
		if v, err := raw.LookupErr(g.GroupBy); err == nil {
			var group any
			if v.Type == bson.TypeEmbeddedDocument {
				var doc bson.M
				err = v.Unmarshal(&doc)
				group = doc
			} else {
				err = v.Unmarshal(&group)
			}
			if err != nil {
				return s, fmt.Errorf("decode group %s: %w", g.GroupBy, err)
			}
			s.Group = group
		}
	}

	v, err := raw.LookupErr(g.Field)
	if err != nil {
		return s, fmt.Errorf("decode %s: %w", g.Field, err)
	}
	if err := v.Unmarshal(&s.Stats); err != nil {
		return s, fmt.Errorf("decode %s: %w", g.Field, err)
	}
	return s, nil
}

// DecodeAll decodes every document returned by a StatGroup pipeline.
func (g StatGroup) DecodeAll(docs []bson.Raw) ([]StatSummary, error) {
	out := make([]StatSummary, 0, len(docs))
	for _, d := range docs {
		s, err := g.Decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// MarshalJSON renders {"<groupBy>": group, "<field>": {...}, "grouped": bool}.
func (s StatSummary) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"grouped": s.Grouped,
		s.Field:   s.Stats,
	}
	if s.Grouped && s.GroupBy != "" {
		out[s.GroupBy] = s.Group
	}
	return json.Marshal(out)
}
