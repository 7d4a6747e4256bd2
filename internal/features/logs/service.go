package logs

import (
	"context"

	common_api "tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/pkg/filter"
	"tafe-weather-api/pkg/pipeline"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSince is the lower deletedAt bound applied when a list request
// does not filter on deletedAt itself.
const DefaultSince = "2021-01-01"

var DefaultSort = pipeline.SortSpec{{Field: "deletedAt", Order: -1}}

type LogService interface {
	List(ctx context.Context, q common_api.ListQuery) (*pipeline.PageResult[Log], error)
	Get(ctx context.Context, id primitive.ObjectID) (*Log, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
}

type LogServiceImpl struct {
	Repo LogRepository
}

func NewLogService(repo LogRepository) LogService {
	return &LogServiceImpl{Repo: repo}
}

// WithDefaultWindow adds deletedAt[gte]=DefaultSince unless params already
// constrain deletedAt.
func WithDefaultWindow(params filter.Params) filter.Params {
	for _, k := range params.Keys() {
		if isDeletedAtKey(k) {
			return params
		}
	}
	defaults := filter.NewParams()
	defaults.Add("deletedAt[gte]", DefaultSince)
	return defaults.Merge(params)
}

// deletedByStages joins the deleting account from users. DBRef fields
// cannot be addressed by path, so the $id is lifted out first. List runs
// these inside the page branch so only the returned page is joined.
func deletedByStages() []pipeline.Stage {
	return pipeline.NewBuilder().
		Set(bson.M{"deletedById": bson.M{
			"$getField": bson.M{
				"field": bson.M{"$literal": "$id"},
				"input": "$deletedBy",
			},
		}}).
		Lookup(pipeline.Lookup{
			From:         "users",
			LocalField:   "deletedById",
			ForeignField: "_id",
			As:           "deletedByUser",
		}).
		Set(bson.M{"deletedByUser": bson.M{"$first": "$deletedByUser"}}).
		Project(bson.M{"deletedById": 0, "deletedByUser.password": 0}).
		Stages()
}

func (s *LogServiceImpl) List(ctx context.Context, q common_api.ListQuery) (*pipeline.PageResult[Log], error) {
	b := pipeline.NewBuilder().Match(q.Filter).Sort(q.Sort)
	return pipeline.RunPaginated[Log](ctx, s.Repo, Collection, b, q.Limit, q.Page, deletedByStages()...)
}

func (s *LogServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Log, error) {
	p := pipeline.NewBuilder().Match(bson.M{"_id": id}).Limit(1).Append(deletedByStages()...).Build()

	var out []Log
	if err := pipeline.Run(ctx, s.Repo, Collection, p, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperror.NotFound("Log not found")
	}
	return &out[0], nil
}

func (s *LogServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.Repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("No documents matched the query. Deleted 0 documents.")
	}
	return nil
}

// DeleteMany removes logs in a deletedAt range. A filter without deletedAt
// is refused.
func (s *LogServiceImpl) DeleteMany(ctx context.Context, f bson.M) (int64, error) {
	if _, ok := f["deletedAt"]; !ok {
		return 0, apperror.BadRequest("A deletedAt filter is required")
	}
	n, err := s.Repo.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperror.NotFound("Logs not found in this date range.")
	}
	return n, nil
}
