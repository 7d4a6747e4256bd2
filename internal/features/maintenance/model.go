package maintenance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const RunCollection = "maintenance_runs"

type Task string

const (
	TaskInactiveStudents Task = "inactive-students"
	TaskLogRetention     Task = "log-retention"
)

var Tasks = []Task{TaskInactiveStudents, TaskLogRetention}

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunSkipped RunStatus = "skipped"
)

// Run records one execution of a maintenance task.
type Run struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Task      Task               `json:"task" bson:"task"`
	Trigger   string             `json:"trigger" bson:"trigger"`
	StartTime time.Time          `json:"startTime" bson:"startTime"`
	EndTime   *time.Time         `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Status    RunStatus          `json:"status" bson:"status"`
	Removed   int64              `json:"removed" bson:"removed"`
	Error     string             `json:"error,omitempty" bson:"error,omitempty"`
}
