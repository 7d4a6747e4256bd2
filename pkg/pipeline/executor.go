package pipeline

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Executor runs a pipeline against a collection and decodes every result
// document into results, which must be a pointer to a slice.
type Executor interface {
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, results any) error
}

// ExecutionError wraps a failed aggregation together with the pipeline that
// caused it.
type ExecutionError struct {
	Collection string
	Pipeline   mongo.Pipeline
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("aggregate %s: %v", e.Collection, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// PipelineJSON renders the pipeline as relaxed extended JSON for logs.
func (e *ExecutionError) PipelineJSON() string {
	b, err := bson.MarshalExtJSON(bson.M{"pipeline": e.Pipeline}, false, false)
	if err != nil {
		return fmt.Sprintf("%v", e.Pipeline)
	}
	return string(b)
}

// Run executes p and wraps any failure in an ExecutionError. It never retries.
func Run(ctx context.Context, exec Executor, collection string, p mongo.Pipeline, results any) error {
	if err := exec.Aggregate(ctx, collection, p, results); err != nil {
		return &ExecutionError{Collection: collection, Pipeline: p, Err: err}
	}
	return nil
}
