package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCalculatePagination(t *testing.T) {
	tests := []struct {
		name                   string
		total, limit, page     int64
		wantPages, wantCurrent int64
	}{
		{"page past the end is clamped", 95, 10, 20, 10, 10},
		{"empty result", 0, 10, 1, 0, 1},
		{"empty result, later page", 0, 10, 7, 0, 1},
		{"exact multiple", 30, 10, 3, 3, 3},
		{"partial last page", 25, 10, 3, 3, 3},
		{"first page", 25, 10, 1, 3, 1},
		{"limit near int64 max", 25, math.MaxInt64, 1, 1, 1},
		{"total and limit near int64 max", math.MaxInt64, math.MaxInt64 - 1, 5, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, current := CalculatePagination(tt.total, tt.limit, tt.page)
			assert.Equal(t, tt.wantPages, pages)
			assert.Equal(t, tt.wantCurrent, current)
		})
	}
}

// facetExecutor applies the $facet stage of a pipeline to an in-memory fixture.
type facetExecutor struct {
	docs     []bson.M
	captured mongo.Pipeline
	err      error
}

func (f *facetExecutor) Aggregate(ctx context.Context, collection string, p mongo.Pipeline, results any) error {
	f.captured = p
	if f.err != nil {
		return f.err
	}

	facet := p[len(p)-1][0].Value.(bson.M)
	data := facet["data"].(bson.A)
	skip := data[0].(bson.M)["$skip"].(int64)
	limit := data[1].(bson.M)["$limit"].(int64)

	end := min(skip+limit, int64(len(f.docs)))
	page := bson.A{}
	for i := skip; i < end; i++ {
		page = append(page, f.docs[i])
	}

	out := bson.A{bson.M{
		"totalCount": bson.A{bson.M{"totalCount": int32(len(f.docs))}},
		"data":       page,
	}}
	raw, err := bson.Marshal(bson.M{"r": out})
	if err != nil {
		return err
	}
	return bson.Raw(raw).Lookup("r").Unmarshal(results)
}

type reading struct {
	DeviceName string    `bson:"deviceName"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func TestRunPaginatedThirdPage(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	exec := &facetExecutor{}
	for i := 0; i < 25; i++ {
		exec.docs = append(exec.docs, bson.M{
			"deviceName": "Woodford",
			"createdAt":  start.Add(time.Duration(i) * 90 * time.Hour),
		})
	}

	res, err := RunPaginated[reading](context.Background(), exec, "weathers", NewBuilder(), 10, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(25), res.TotalCount)
	assert.Equal(t, int64(3), res.TotalPages)
	assert.Equal(t, int64(3), res.CurrentPage)
	assert.Len(t, res.Data, 5)
	assert.Len(t, exec.captured, 1)
}

func TestRunPaginatedEmpty(t *testing.T) {
	res, err := RunPaginated[reading](context.Background(), &facetExecutor{}, "weathers", NewBuilder().Match(bson.M{"x": 1}), 10, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.TotalCount)
	assert.Equal(t, int64(0), res.TotalPages)
	assert.Equal(t, int64(1), res.CurrentPage)
	assert.NotNil(t, res.Data)
}

func TestRunWrapsExecutionError(t *testing.T) {
	boom := errors.New("document failed validation")
	exec := &facetExecutor{err: boom}

	_, err := RunPaginated[reading](context.Background(), exec, "weathers", NewBuilder(), 10, 1)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "weathers", execErr.Collection)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, execErr.PipelineJSON(), "$facet")
}

func TestRunPaginatedHugePageStaysInRange(t *testing.T) {
	exec := &facetExecutor{docs: []bson.M{{"deviceName": "Woodford"}}}

	res, err := RunPaginated[reading](context.Background(), exec, "weathers", NewBuilder(), 10, math.MaxInt64)
	require.NoError(t, err)

	skip := exec.captured[0][0].Value.(bson.M)["data"].(bson.A)[0].(bson.M)["$skip"].(int64)
	assert.GreaterOrEqual(t, skip, int64(0))
	assert.Empty(t, res.Data)
	assert.Equal(t, int64(1), res.TotalPages)
	assert.Equal(t, int64(1), res.CurrentPage)
}

func TestRunPaginatedAppliesThenToPageOnly(t *testing.T) {
	exec := &facetExecutor{}
	lookup := Lookup{From: "users", LocalField: "deletedById", ForeignField: "_id", As: "deletedByUser"}

	_, err := RunPaginated[reading](context.Background(), exec, "logs", NewBuilder().Match(bson.M{"x": 1}), 10, 1, lookup)
	require.NoError(t, err)

	require.Len(t, exec.captured, 2)
	data := exec.captured[1][0].Value.(bson.M)["data"].(bson.A)
	require.Len(t, data, 3)
	assert.Equal(t, lookup.Document(), data[2])
}
