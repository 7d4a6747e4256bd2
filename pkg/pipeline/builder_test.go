package pipeline

import (
	"math"
	"testing"

	"tafe-weather-api/pkg/filter"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestBuilderOmitsEmptyStages(t *testing.T) {
	p := NewBuilder().
		Match(bson.M{}).
		Sort(nil).
		Project(nil).
		Group(nil).
		Unwind("").
		ReplaceRoot("").
		Set(nil).
		Limit(0).
		Lookup(Lookup{}).
		Merge("").
		Build()

	assert.Empty(t, p)
}

func TestListPipeline(t *testing.T) {
	pred := bson.M{"deviceName": "Woodford"}
	sort := SortSpec{{Field: "createdAt", Order: -1}, {Field: "deviceName", Order: 1}}

	got := ListPipeline(pred, sort, bson.M{"password": 0}, 10, 3)

	want := mongo.Pipeline{
		{{Key: "$match", Value: pred}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "deviceName", Value: 1}}}},
		{{Key: "$project", Value: bson.M{"password": 0}}},
		{{Key: "$facet", Value: bson.M{
			"totalCount": bson.A{bson.M{"$count": "totalCount"}},
			"data":       bson.A{bson.M{"$skip": int64(20)}, bson.M{"$limit": int64(10)}},
		}}},
	}
	assert.Equal(t, want, got)
}

func TestPaginateNormalizesInput(t *testing.T) {
	got := NewBuilder().Paginate(0, -4).Stages()

	assert.Equal(t, []Stage{Paginate{Limit: DefaultLimit, Page: DefaultPage}}, got)
}

func TestNormalizeBounds(t *testing.T) {
	tests := []struct {
		name                string
		limit, page         int64
		wantLimit, wantPage int64
	}{
		{"defaults", 0, 0, DefaultLimit, DefaultPage},
		{"limit capped", math.MaxInt64, 1, MaxLimit, 1},
		{"page clamped so skip fits", 10, math.MaxInt64, 10, math.MaxInt64 / 10},
		{"both extreme", math.MaxInt64, math.MaxInt64, MaxLimit, math.MaxInt64 / MaxLimit},
		{"ordinary", 25, 4, 25, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, page := Normalize(tt.limit, tt.page)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantPage, page)
			assert.GreaterOrEqual(t, (page-1)*limit, int64(0))
		})
	}
}

func TestPaginateDocumentNeverNegativeSkip(t *testing.T) {
	doc := Paginate{Limit: 10, Page: math.MaxInt64}.Document()

	data := doc[0].Value.(bson.M)["data"].(bson.A)
	assert.GreaterOrEqual(t, data[0].(bson.M)["$skip"].(int64), int64(0))
	assert.Equal(t, int64(10), data[1].(bson.M)["$limit"].(int64))
}

func TestPaginateThenStagesFollowLimit(t *testing.T) {
	got := NewBuilder().
		Paginate(5, 2, Set{Fields: bson.M{"a": 1}}, nil, Project{Spec: bson.M{"b": 0}}).
		Build()

	want := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"totalCount": bson.A{bson.M{"$count": "totalCount"}},
			"data": bson.A{
				bson.M{"$skip": int64(5)},
				bson.M{"$limit": int64(5)},
				bson.D{{Key: "$set", Value: bson.M{"a": 1}}},
				bson.D{{Key: "$project", Value: bson.M{"b": 0}}},
			},
		}}},
	}
	assert.Equal(t, want, got)
}

func TestExtremesStages(t *testing.T) {
	got := NewBuilder().
		FilterArray("docs", "doc", bson.M{"$eq": bson.A{"$$doc.precipitation", "$max"}}).
		Unwind("docs").
		ReplaceRoot("docs").
		Build()

	assert.Len(t, got, 3)
	assert.Equal(t, "$project", got[0][0].Key)
	assert.Equal(t, bson.D{{Key: "$unwind", Value: "$docs"}}, got[1])
	assert.Equal(t, bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$docs"}}}, got[2])
}

func TestParseSort(t *testing.T) {
	params := filter.ParseQuery("sort[createdAt]=-1&limit=5&sort[deviceName]=1&sort[humidity]=2&sort[createdAt]=1")

	got := ParseSort(params)

	// repeated sort[createdAt] becomes a list and only its first value counts
	assert.Equal(t, SortSpec{{Field: "createdAt", Order: -1}, {Field: "deviceName", Order: 1}}, got)
}

func TestSortMerge(t *testing.T) {
	requested := SortSpec{{Field: "deviceName", Order: 1}}
	defaults := SortSpec{{Field: "deletedAt", Order: -1}, {Field: "deviceName", Order: -1}}

	assert.Equal(t,
		SortSpec{{Field: "deviceName", Order: 1}, {Field: "deletedAt", Order: -1}},
		requested.Merge(defaults),
	)
	assert.Equal(t, defaults, SortSpec(nil).Merge(defaults))
	// receiver is not modified
	assert.Len(t, requested, 1)
}

func TestMoveToCollectionPipeline(t *testing.T) {
	ids := bson.A{"a", "b"}
	got := NewBuilder().
		Match(bson.M{"_id": bson.M{"$in": ids}}).
		Set(bson.M{"deletedAt": "$$NOW"}).
		Merge("logs").
		Build()

	assert.Len(t, got, 3)
	assert.Equal(t, "$merge", got[2][0].Key)
	assert.Equal(t, "logs", got[2][0].Value.(bson.M)["into"])
}
