package maintenance

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/features/logs"
	"tafe-weather-api/internal/features/user"
	"tafe-weather-api/internal/metrics"
	"tafe-weather-api/pkg/filter"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"

	DefaultRunsLimit = 20
)

var purgeCompiler = filter.NewCompiler()

// Deleter removes every document matching a filter.
type Deleter interface {
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
}

type MaintenanceService interface {
	Start() error
	Stop()
	Run(ctx context.Context, task Task, trigger string) (*Run, error)
	Runs(ctx context.Context, task Task, limit int64) ([]Run, error)
}

type MaintenanceServiceImpl struct {
	runs   RunRepository
	users  Deleter
	logs   Deleter
	config *config.Config
	logger *zap.Logger
	now    func() time.Time

	scheduler *cron.Cron
	mu        sync.Mutex
}

func NewMaintenanceService(
	runs RunRepository,
	users user.UserRepository,
	logRepo logs.LogRepository,
	cfg *config.Config,
	logger *zap.Logger,
) MaintenanceService {
	return &MaintenanceServiceImpl{
		runs:   runs,
		users:  users,
		logs:   logRepo,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules every task on the configured cron spec.
func (s *MaintenanceServiceImpl) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		return nil
	}
	scheduler := cron.New()
	_, err := scheduler.AddFunc(s.config.MaintenanceSchedule, func() {
		for _, task := range Tasks {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := s.Run(ctx, task, TriggerSchedule); err != nil {
				s.logger.Error("Maintenance task failed", zap.String("task", string(task)), zap.Error(err))
			}
			cancel()
		}
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", s.config.MaintenanceSchedule, err)
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.logger.Info("Maintenance scheduler started", zap.String("schedule", s.config.MaintenanceSchedule))
	return nil
}

func (s *MaintenanceServiceImpl) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
		s.scheduler = nil
	}
}

// Run executes one task and records the outcome. A task whose threshold is
// not configured is recorded as skipped.
func (s *MaintenanceServiceImpl) Run(ctx context.Context, task Task, trigger string) (*Run, error) {
	if !slices.Contains(Tasks, task) {
		return nil, apperror.NotFound("Maintenance task not found")
	}

	start := s.now().UTC()
	run := &Run{Task: task, Trigger: trigger, StartTime: start, Status: RunRunning}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.logger.Warn("Failed to record maintenance run", zap.Error(err))
	}

	removed, skipped, execErr := s.execute(ctx, task, start)

	end := s.now().UTC()
	run.EndTime = &end
	run.Removed = removed
	switch {
	case execErr != nil:
		run.Status = RunFailed
		run.Error = execErr.Error()
	case skipped:
		run.Status = RunSkipped
	default:
		run.Status = RunSuccess
	}

	if err := s.runs.UpdateRun(ctx, run); err != nil {
		s.logger.Warn("Failed to update maintenance run", zap.Error(err))
	}
	if !skipped {
		metrics.RecordMaintenance(string(task), removed, execErr)
	}

	s.logger.Info("Maintenance task finished",
		zap.String("task", string(task)),
		zap.String("trigger", trigger),
		zap.String("status", string(run.Status)),
		zap.Int64("removed", removed),
	)
	return run, execErr
}

func (s *MaintenanceServiceImpl) execute(ctx context.Context, task Task, now time.Time) (int64, bool, error) {
	switch task {
	case TaskInactiveStudents:
		if s.config.StudentInactiveDays <= 0 {
			return 0, true, nil
		}
		f, err := InactiveStudentsFilter(now, s.config.StudentInactiveDays)
		if err != nil {
			return 0, false, err
		}
		n, err := s.users.DeleteMany(ctx, f)
		return n, false, err
	case TaskLogRetention:
		if s.config.LogRetentionDays <= 0 {
			return 0, true, nil
		}
		f, err := LogRetentionFilter(now, s.config.LogRetentionDays)
		if err != nil {
			return 0, false, err
		}
		n, err := s.logs.DeleteMany(ctx, f)
		return n, false, err
	}
	return 0, true, nil
}

func (s *MaintenanceServiceImpl) Runs(ctx context.Context, task Task, limit int64) ([]Run, error) {
	if task != "" && !slices.Contains(Tasks, task) {
		return nil, apperror.NotFound("Maintenance task not found")
	}
	if limit <= 0 {
		limit = DefaultRunsLimit
	}
	return s.runs.ListRuns(ctx, task, limit)
}

// InactiveStudentsFilter matches accounts holding only the student role
// whose last login is more than days before now.
func InactiveStudentsFilter(now time.Time, days int) (bson.M, error) {
	f, err := olderThan("lastLoggedInAt", now, days)
	if err != nil {
		return nil, err
	}
	f["role"] = bson.A{string(models.RoleStudent)}
	return f, nil
}

// LogRetentionFilter matches soft-deleted readings removed more than days
// before now.
func LogRetentionFilter(now time.Time, days int) (bson.M, error) {
	return olderThan("deletedAt", now, days)
}

func olderThan(field string, now time.Time, days int) (bson.M, error) {
	cutoff := now.UTC().AddDate(0, 0, -days)
	p := filter.NewParams()
	p.Add(field+"[lt]", cutoff.Format(time.RFC3339Nano))
	return purgeCompiler.Compile(p)
}
