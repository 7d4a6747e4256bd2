package pipeline

import (
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DefaultLimit int64 = 10
	DefaultPage  int64 = 1
	// MaxLimit caps one page.
	MaxLimit int64 = 10000
)

// Builder assembles an aggregation pipeline stage by stage. Stages given an
// empty spec are dropped. A Builder belongs to a single request.
type Builder struct {
	stages []Stage
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Match(pred bson.M) *Builder {
	if len(pred) > 0 {
		b.stages = append(b.stages, Match{Predicate: pred})
	}
	return b
}

func (b *Builder) Sort(spec SortSpec) *Builder {
	if len(spec) > 0 {
		b.stages = append(b.stages, Sort{Spec: spec})
	}
	return b
}

func (b *Builder) Project(spec bson.M) *Builder {
	if len(spec) > 0 {
		b.stages = append(b.stages, Project{Spec: spec})
	}
	return b
}

func (b *Builder) Group(spec bson.D) *Builder {
	if len(spec) > 0 {
		b.stages = append(b.stages, Group{Spec: spec})
	}
	return b
}

// Paginate appends one $facet stage carrying both the total count and the
// requested page. Out-of-range values fall back to the defaults.
// Paginate appends the count/page fan-out. Stages in then run on the page
// only, after skip and limit.
func (b *Builder) Paginate(limit, page int64, then ...Stage) *Builder {
	limit, page = Normalize(limit, page)
	b.stages = append(b.stages, Paginate{Limit: limit, Page: page, Then: then})
	return b
}

func (b *Builder) Unwind(path string) *Builder {
	if path != "" {
		b.stages = append(b.stages, Unwind{Path: path})
	}
	return b
}

func (b *Builder) ReplaceRoot(path string) *Builder {
	if path != "" {
		b.stages = append(b.stages, ReplaceRoot{Path: path})
	}
	return b
}

func (b *Builder) Set(fields bson.M) *Builder {
	if len(fields) > 0 {
		b.stages = append(b.stages, Set{Fields: fields})
	}
	return b
}

func (b *Builder) Limit(n int64) *Builder {
	if n > 0 {
		b.stages = append(b.stages, Limit{N: n})
	}
	return b
}

func (b *Builder) Lookup(spec Lookup) *Builder {
	if spec.From != "" && spec.As != "" {
		b.stages = append(b.stages, spec)
	}
	return b
}

// Merge must be the last stage of a pipeline.
func (b *Builder) Merge(into string) *Builder {
	if into != "" {
		b.stages = append(b.stages, Merge{Into: into})
	}
	return b
}

// FilterArray keeps only the elements of the array field that satisfy cond.
// Inside cond the current element is "$$<as>".
func (b *Builder) FilterArray(field, as string, cond any) *Builder {
	if field == "" || cond == nil {
		return b
	}
	return b.Project(bson.M{field: bson.M{"$filter": bson.M{
		"input": "$" + field,
		"as":    as,
		"cond":  cond,
	}}})
}

// Append adds prebuilt stages, e.g. the pair returned by StatGroup.Stages.
func (b *Builder) Append(stages ...Stage) *Builder {
	for _, s := range stages {
		if s != nil {
			b.stages = append(b.stages, s)
		}
	}
	return b
}

func (b *Builder) Stages() []Stage {
	out := make([]Stage, len(b.stages))
	copy(out, b.stages)
	return out
}

func (b *Builder) Build() mongo.Pipeline {
	p := make(mongo.Pipeline, 0, len(b.stages))
	for _, s := range b.stages {
		p = append(p, s.Document())
	}
	return p
}

// ListPipeline is the list-endpoint pipeline: match, sort, project, then one
// page of results.
func ListPipeline(pred bson.M, sort SortSpec, projection bson.M, limit, page int64) mongo.Pipeline {
	return NewBuilder().
		Match(pred).
		Sort(sort).
		Project(projection).
		Paginate(limit, page).
		Build()
}

// Normalize replaces a non-positive limit or a page below 1 with the
// defaults, caps limit at MaxLimit and keeps (page-1)*limit within int64.
func Normalize(limit, page int64) (int64, int64) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	if page < 1 {
		page = DefaultPage
	}
	page = min(page, math.MaxInt64/limit)
	return limit, page
}
