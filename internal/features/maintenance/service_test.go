package maintenance

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type fakeRuns struct {
	runs []Run
}

func (f *fakeRuns) CreateRun(_ context.Context, run *Run) error { return nil }

func (f *fakeRuns) UpdateRun(_ context.Context, run *Run) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRuns) ListRuns(_ context.Context, task Task, limit int64) ([]Run, error) {
	out := []Run{}
	for _, r := range f.runs {
		if task == "" || r.Task == task {
			out = append(out, r)
		}
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeDeleter struct {
	filters []bson.M
	n       int64
	err     error
}

func (f *fakeDeleter) DeleteMany(_ context.Context, filter bson.M) (int64, error) {
	f.filters = append(f.filters, filter)
	return f.n, f.err
}

var now = time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)

func newTestService(cfg *config.Config) (*MaintenanceServiceImpl, *fakeRuns, *fakeDeleter, *fakeDeleter) {
	runs, users, logs := &fakeRuns{}, &fakeDeleter{n: 3}, &fakeDeleter{n: 7}
	return &MaintenanceServiceImpl{
		runs:   runs,
		users:  users,
		logs:   logs,
		config: cfg,
		logger: zap.NewNop(),
		now:    func() time.Time { return now },
	}, runs, users, logs
}

func TestFilters(t *testing.T) {
	f, err := InactiveStudentsFilter(now, 30)
	require.NoError(t, err)
	assert.Equal(t, bson.A{"student"}, f["role"])
	assert.Equal(t, bson.M{"$lt": time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}, f["lastLoggedInAt"])

	f, err = LogRetentionFilter(now, 365)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$lt": time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)}, f["deletedAt"])
}

func TestRunInactiveStudents(t *testing.T) {
	svc, runs, users, logs := newTestService(&config.Config{StudentInactiveDays: 30})

	run, err := svc.Run(context.Background(), TaskInactiveStudents, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, RunSuccess, run.Status)
	assert.EqualValues(t, 3, run.Removed)
	assert.Len(t, users.filters, 1)
	assert.Empty(t, logs.filters)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, TriggerManual, runs.runs[0].Trigger)
}

func TestRunSkipsUnconfiguredRetention(t *testing.T) {
	svc, _, _, logs := newTestService(&config.Config{})

	run, err := svc.Run(context.Background(), TaskLogRetention, TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, RunSkipped, run.Status)
	assert.Empty(t, logs.filters)
}

func TestRunRecordsFailure(t *testing.T) {
	svc, runs, _, logs := newTestService(&config.Config{LogRetentionDays: 90})
	logs.err = errors.New("connection reset")

	_, err := svc.Run(context.Background(), TaskLogRetention, TriggerSchedule)
	require.Error(t, err)
	assert.Equal(t, RunFailed, runs.runs[0].Status)
	assert.Equal(t, "connection reset", runs.runs[0].Error)
}

func TestRunUnknownTask(t *testing.T) {
	svc, _, _, _ := newTestService(&config.Config{})
	_, err := svc.Run(context.Background(), Task("vacuum"), TriggerManual)
	assert.Equal(t, 404, apperror.From(err).Code)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc, _, _, _ := newTestService(&config.Config{MaintenanceSchedule: "every tuesday"})
	assert.Error(t, svc.Start())

	svc, _, _, _ = newTestService(&config.Config{MaintenanceSchedule: "@daily"})
	require.NoError(t, svc.Start())
	svc.Stop()
}

func TestMaintenanceRoutes(t *testing.T) {
	cfg := &config.Config{SkipAuth: true, StudentInactiveDays: 30}
	svc, _, _, _ := newTestService(cfg)
	app := fiber.New(fiber.Config{ErrorHandler: apperror.ErrorHandler(zap.NewNop())})
	NewMaintenanceApi(NewMaintenanceController(svc), nil, cfg).Setup(app)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/maintenance/inactive-students/run", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/maintenance/vacuum/run", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/maintenance/runs?task=inactive-students", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
