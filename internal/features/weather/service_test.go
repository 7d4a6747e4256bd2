package weather

import (
	"context"
	"testing"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/pkg/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeRepo records pipelines and answers every aggregation with docs.
type fakeRepo struct {
	latest    *time.Time
	docs      []bson.M
	pipelines []mongo.Pipeline
	inserted  []Weather
	deleted   int64
	filters   []bson.M
	matched   int64
}

func (f *fakeRepo) Aggregate(_ context.Context, _ string, p mongo.Pipeline, results any) error {
	f.pipelines = append(f.pipelines, p)
	raw, err := bson.Marshal(bson.M{"v": f.docs})
	if err != nil {
		return err
	}
	return bson.Raw(raw).Lookup("v").Unmarshal(results)
}

func (f *fakeRepo) FindLatestTimestamp(_ context.Context, _ bson.M) (*time.Time, error) {
	return f.latest, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id primitive.ObjectID) (*Weather, error) {
	for i := range f.inserted {
		if f.inserted[i].ID == id {
			return &f.inserted[i], nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeRepo) Find(_ context.Context, filter bson.M, _ pipeline.SortSpec, _ int64) ([]Weather, error) {
	f.filters = append(f.filters, filter)
	return f.inserted, nil
}

func (f *fakeRepo) InsertOne(_ context.Context, w *Weather) error {
	w.ID = primitive.NewObjectID()
	f.inserted = append(f.inserted, *w)
	return nil
}

func (f *fakeRepo) InsertMany(_ context.Context, ws []Weather) (int, error) {
	for i := range ws {
		ws[i].ID = primitive.NewObjectID()
	}
	f.inserted = append(f.inserted, ws...)
	return len(ws), nil
}

func (f *fakeRepo) Update(_ context.Context, _ primitive.ObjectID, set bson.M) (*mongo.UpdateResult, error) {
	f.filters = append(f.filters, set)
	return &mongo.UpdateResult{MatchedCount: f.matched, ModifiedCount: f.matched}, nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, filter bson.M, _ *models.DBRef) (int64, error) {
	f.filters = append(f.filters, filter)
	return f.deleted, nil
}

func (f *fakeRepo) Devices(_ context.Context) ([]string, error) {
	return []string{"Noosa_Sensor", "Woodford_Sensor"}, nil
}

func (f *fakeRepo) EnsureIndexes(_ context.Context) error { return nil }

type recordingPublisher struct {
	batches [][]Weather
}

func (p *recordingPublisher) Publish(ws []Weather) {
	p.batches = append(p.batches, ws)
}

func newTestService(repo *fakeRepo, pub Publisher) *WeatherServiceImpl {
	svc := NewWeatherService(repo, pub, &config.Config{DBName: "tafe"}, zap.NewNop()).(*WeatherServiceImpl)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func stageOps(p mongo.Pipeline) []string {
	ops := make([]string, len(p))
	for i, s := range p {
		ops[i] = s[0].Key
	}
	return ops
}

func TestBuildStatsPipeline(t *testing.T) {
	latest := time.Date(2021, 5, 7, 3, 44, 4, 0, time.UTC)
	svc := newTestService(&fakeRepo{latest: &latest}, nil)

	p, group, window, err := svc.BuildStatsPipeline(context.Background(), StatsQuery{
		Field: "temperature",
		Scope: Scope{DeviceName: "Woodford_Sensor"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"$match", "$project", "$sort", "$group", "$project"}, stageOps(p))
	assert.False(t, group.Grouped())
	assert.Equal(t, latest, window.End)
	assert.Equal(t, time.Date(2021, 2, 7, 3, 44, 4, 0, time.UTC), window.Start)

	match := p[0][0].Value.(bson.M)
	assert.Equal(t, "Woodford_Sensor", match["deviceName"])
	assert.Equal(t, bson.M{"$gte": window.Start, "$lte": window.End}, match["createdAt"])
	assert.Equal(t, bson.M{"$ne": nil}, match["temperature"])

	sort := p[2][0].Value.(bson.D)
	assert.Equal(t, bson.D{{Key: "temperature", Value: -1}, {Key: "createdAt", Value: -1}}, sort)
}

func TestBuildStatsPipelineGroupedAndFiltered(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	p, group, window, err := svc.BuildStatsPipeline(context.Background(), StatsQuery{
		Field:   "humidity",
		GroupBy: "deviceName",
		Range: DateRange{
			Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Filter: bson.M{"temperature": bson.M{"$gt": 20.0}},
	})
	require.NoError(t, err)

	assert.True(t, group.Grouped())
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, []string{"$match", "$project", "$sort", "$group", "$project", "$sort"}, stageOps(p))

	match := p[0][0].Value.(bson.M)
	and, ok := match["$and"].(bson.A)
	require.True(t, ok, "extra filter is combined with $and")
	assert.Len(t, and, 2)

	assert.Equal(t, bson.D{{Key: "deviceName", Value: 1}}, p[5][0].Value)
}

func TestStatsRejectsBadInput(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		q    StatsQuery
	}{
		{"unknown field", StatsQuery{Field: "deviceName"}},
		{"empty field", StatsQuery{}},
		{"unknown group", StatsQuery{Field: "humidity", GroupBy: "createdBy"}},
		{"inverted window", StatsQuery{Field: "humidity", Range: DateRange{
			Start: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Stats(ctx, tt.q)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 400, appErr.Code)
		})
	}
}

func TestStatsDecodesSummaries(t *testing.T) {
	repo := &fakeRepo{docs: []bson.M{{
		"grouped":    true,
		"deviceName": "Woodford_Sensor",
		"temperature": bson.M{
			"max":    bson.M{"value": 31.2, "deviceName": "Woodford_Sensor"},
			"min":    bson.M{"value": 4.5, "deviceName": "Woodford_Sensor"},
			"avg":    bson.M{"value": 18.0},
			"median": bson.M{"value": 17.5},
		},
	}}}
	svc := newTestService(repo, nil)

	res, err := svc.Stats(context.Background(), StatsQuery{Field: "temperature", GroupBy: "deviceName"})
	require.NoError(t, err)

	require.Len(t, res.Result, 1)
	s := res.Result[0]
	assert.Equal(t, "Woodford_Sensor", s.Group)
	assert.Equal(t, 31.2, s.Stats.Max.Value)
	assert.Equal(t, 17.5, s.Stats.Median.Value)
	assert.Equal(t, "temperature", res.Field)
}

func TestBuildExtremesPipeline(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	p, _, err := svc.BuildExtremesPipeline(context.Background(), ExtremesQuery{
		StatsQuery: StatsQuery{Field: "maxWindSpeed"},
		Operation:  "max",
		Limit:      5,
	})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"$match", "$project", "$group", "$project", "$unwind", "$replaceRoot", "$sort", "$limit"},
		stageOps(p))

	group := p[2][0].Value.(bson.D)
	assert.Nil(t, group[0].Value, "ungrouped extremes share one group")
	assert.Equal(t, bson.M{"$max": "$maxWindSpeed"}, group[1].Value)

	_, _, err = svc.BuildExtremesPipeline(context.Background(), ExtremesQuery{
		StatsQuery: StatsQuery{Field: "maxWindSpeed"},
		Operation:  "avg",
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperror.From(err).Code)
}

func TestCreateStampsAuthorAndPublishes(t *testing.T) {
	repo := &fakeRepo{}
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)

	temp, hum := 21.5, 60.0
	zero := 0.0
	in := Input{
		DeviceName: "Noosa_Sensor", Temperature: &temp, Humidity: &hum,
		Precipitation: &zero, AtmosphericPressure: &zero, MaxWindSpeed: &zero,
		SolarRadiation: &zero, VaporPressure: &zero, WindDirection: &zero,
	}
	author := &models.User{ID: primitive.NewObjectID()}

	out, err := svc.Create(context.Background(), []Input{in, in}, author)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Len(t, repo.inserted, 2)
	require.NotNil(t, out[0].CreatedBy)
	assert.Equal(t, author.ID, out[0].CreatedBy.ID)
	assert.Equal(t, "users", out[0].CreatedBy.Ref)
	assert.Equal(t, svc.now(), out[0].CreatedAt)
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
}

func TestDeleteSemantics(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo, nil)

	err := svc.Delete(ctx, primitive.NewObjectID(), nil)
	assert.Equal(t, 404, apperror.From(err).Code)

	_, err = svc.DeleteMany(ctx, bson.M{}, nil)
	assert.Equal(t, 400, apperror.From(err).Code)
	assert.Len(t, repo.filters, 1, "empty filter never reaches the repository")

	repo.deleted = 3
	n, err := svc.DeleteMany(ctx, bson.M{"deviceName": "Noosa_Sensor"}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestUpdateSetsModificationStamp(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo, nil)

	temp := 30.0
	_, err := svc.Update(ctx, primitive.NewObjectID(), Update{Temperature: &temp}, nil)
	assert.Equal(t, 404, apperror.From(err).Code)

	_, err = svc.Update(ctx, primitive.NewObjectID(), Update{}, nil)
	assert.Equal(t, 400, apperror.From(err).Code)

	repo.matched = 1
	author := &models.User{ID: primitive.NewObjectID()}
	_, err = svc.Update(ctx, primitive.NewObjectID(), Update{Temperature: &temp}, author)
	require.NoError(t, err)

	set := repo.filters[len(repo.filters)-1]
	assert.Equal(t, 30.0, set["temperature"])
	assert.Equal(t, svc.now().UTC(), set["lastModifiedAt"])
	assert.Equal(t, author.ID, set["lastModifiedBy"].(*models.DBRef).ID)
}
