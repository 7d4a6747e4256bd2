package logs

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/pkg/filter"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeLogRepo struct {
	pipelines []mongo.Pipeline
	deletes   []bson.M
	deleted   int64
}

func (f *fakeLogRepo) Aggregate(_ context.Context, _ string, p mongo.Pipeline, results any) error {
	f.pipelines = append(f.pipelines, p)
	raw, _ := bson.Marshal(bson.M{"v": bson.A{}})
	return bson.Raw(raw).Lookup("v").Unmarshal(results)
}

func (f *fakeLogRepo) DeleteByID(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.deletes = append(f.deletes, bson.M{"_id": id})
	return f.deleted, nil
}

func (f *fakeLogRepo) DeleteMany(_ context.Context, filter bson.M) (int64, error) {
	f.deletes = append(f.deletes, filter)
	return f.deleted, nil
}

func (f *fakeLogRepo) EnsureIndexes(_ context.Context) error { return nil }

func newLogApp(repo *fakeLogRepo) *fiber.App {
	cfg := &config.Config{SkipAuth: true}
	app := fiber.New(fiber.Config{ErrorHandler: apperror.ErrorHandler(zap.NewNop())})
	NewLogApi(NewLogController(NewLogService(repo)), nil, cfg).Setup(app)
	return app
}

func TestWithDefaultWindow(t *testing.T) {
	p := WithDefaultWindow(filter.ParseQuery("deviceName=Noosa_Sensor"))
	assert.Equal(t, "2021-01-01", p.String("deletedAt[gte]"))
	assert.Equal(t, "Noosa_Sensor", p.String("deviceName"))

	p = WithDefaultWindow(filter.ParseQuery("deletedAt[lte]=2022-01-01"))
	_, ok := p.Get("deletedAt[gte]")
	assert.False(t, ok, "an explicit deletedAt replaces the default")
}

func TestListLogsPipeline(t *testing.T) {
	repo := &fakeLogRepo{}
	app := newLogApp(repo)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/logs?limit=20", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	require.Len(t, repo.pipelines, 1)
	p := repo.pipelines[0]

	ops := make([]string, len(p))
	for i, s := range p {
		ops[i] = s[0].Key
	}
	assert.Equal(t, []string{"$match", "$sort", "$facet"}, ops)

	// the users join only sees the page
	data := p[2][0].Value.(bson.M)["data"].(bson.A)
	dataOps := make([]string, len(data))
	for i, s := range data {
		switch st := s.(type) {
		case bson.M:
			for k := range st {
				dataOps[i] = k
			}
		case bson.D:
			dataOps[i] = st[0].Key
		}
	}
	assert.Equal(t, []string{"$skip", "$limit", "$set", "$lookup", "$set", "$project"}, dataOps)
	assert.Equal(t, int64(20), data[1].(bson.M)["$limit"])

	match := p[0][0].Value.(bson.M)
	assert.Equal(t, bson.M{"$gte": time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}, match["deletedAt"])
	assert.Equal(t, bson.D{{Key: "deletedAt", Value: -1}}, p[1][0].Value)
}

func TestLogDeletes(t *testing.T) {
	repo := &fakeLogRepo{}
	app := newLogApp(repo)

	tests := []struct {
		name    string
		url     string
		deleted int64
		status  int
	}{
		{"one missing", "/api/v1/logs/5f7d1b2c9d3e4a0012345678", 0, 404},
		{"one", "/api/v1/logs/5f7d1b2c9d3e4a0012345678", 1, 204},
		{"batch in range", "/api/v1/logs/batch?deletedAt[lte]=2021-06-01", 7, 204},
		{"batch nothing in range", "/api/v1/logs/batch?deletedAt[lte]=2021-06-01", 0, 404},
		{"batch without range", "/api/v1/logs/batch", 7, 400},
		{"batch other field", "/api/v1/logs/batch?deviceName=x", 7, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.deleted = tt.deleted
			resp, err := app.Test(httptest.NewRequest("DELETE", tt.url, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestGetLogJoinsAfterLimit(t *testing.T) {
	repo := &fakeLogRepo{}
	_, _ = NewLogService(repo).Get(context.Background(), primitive.NewObjectID())

	require.Len(t, repo.pipelines, 1)
	ops := make([]string, len(repo.pipelines[0]))
	for i, s := range repo.pipelines[0] {
		ops[i] = s[0].Key
	}
	assert.Equal(t, []string{"$match", "$limit", "$set", "$lookup", "$set", "$project"}, ops)
}

func TestGetLogNotFound(t *testing.T) {
	svc := NewLogService(&fakeLogRepo{})
	_, err := svc.Get(context.Background(), primitive.NewObjectID())
	assert.Equal(t, 404, apperror.From(err).Code)
}
