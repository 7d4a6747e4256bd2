package api

import (
	"encoding/json"
	"strconv"

	"tafe-weather-api/pkg/filter"
	"tafe-weather-api/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// ListQuery is a parsed list request: filter, sort and one page.
type ListQuery struct {
	Filter bson.M
	Sort   pipeline.SortSpec
	Limit  int64
	Page   int64
}

// Paging is the pagination block of list responses.
type Paging struct {
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
	Limit       int64 `json:"limit"`
}

// ListResponse is the envelope of every list endpoint.
type ListResponse[T any] struct {
	Paging Paging `json:"paging"`
	Result []T    `json:"result"`
}

func NewListResponse[T any](page *pipeline.PageResult[T], limit int64) ListResponse[T] {
	return ListResponse[T]{
		Paging: Paging{
			TotalCount:  page.TotalCount,
			TotalPages:  page.TotalPages,
			CurrentPage: page.CurrentPage,
			Limit:       limit,
		},
		Result: page.Data,
	}
}

// QueryParams returns the request's query string as filter params.
func QueryParams(c *fiber.Ctx) filter.Params {
	return filter.FromArgs(c.Context().QueryArgs())
}

// ParseListQuery compiles params with compiler and applies defaultSort after
// any requested sort keys.
func ParseListQuery(params filter.Params, compiler *filter.Compiler, defaultSort pipeline.SortSpec) (ListQuery, error) {
	pred, err := compiler.Compile(params)
	if err != nil {
		return ListQuery{}, err
	}

	limit, page := pipeline.Normalize(
		ParseInt64(params.String("limit"), pipeline.DefaultLimit),
		ParseInt64(params.String("page"), pipeline.DefaultPage),
	)

	return ListQuery{
		Filter: pred,
		Sort:   pipeline.ParseSort(params).Merge(defaultSort),
		Limit:  limit,
		Page:   page,
	}, nil
}

// ParseInt64 parses a string or number into an int64
func ParseInt64(val interface{}, defaultVal int64) int64 {
	if val == nil {
		return defaultVal
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
	}
	return defaultVal
}
