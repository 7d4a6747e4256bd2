package pipeline

import (
	"context"
)

// PageResult is one page of a paginated aggregation.
type PageResult[T any] struct {
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
	Data        []T   `json:"data"`
}

// CalculatePagination derives page counts. A page past the end is clamped to
// the last page; an empty result reports page 1 of 0.
func CalculatePagination(totalCount, limit, page int64) (totalPages, currentPage int64) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	totalPages = totalCount / limit
	if totalCount%limit != 0 {
		totalPages++
	}
	if totalPages == 0 {
		return 0, 1
	}
	currentPage = min(max(page, 1), totalPages)
	return totalPages, currentPage
}

type facetResult[T any] struct {
	TotalCount []struct {
		TotalCount int64 `bson:"totalCount"`
	} `bson:"totalCount"`
	Data []T `bson:"data"`
}

// RunPaginated appends a Paginate stage to stages, executes the pipeline and
// decodes the single facet document into a PageResult. Stages in then only
// see the requested page.
func RunPaginated[T any](ctx context.Context, exec Executor, collection string, stages *Builder, limit, page int64, then ...Stage) (*PageResult[T], error) {
	limit, page = Normalize(limit, page)
	p := stages.Paginate(limit, page, then...).Build()

	var facets []facetResult[T]
	if err := Run(ctx, exec, collection, p, &facets); err != nil {
		return nil, err
	}

	result := &PageResult[T]{Data: []T{}}
	if len(facets) > 0 {
		if len(facets[0].TotalCount) > 0 {
			result.TotalCount = facets[0].TotalCount[0].TotalCount
		}
		if facets[0].Data != nil {
			result.Data = facets[0].Data
		}
	}
	result.TotalPages, result.CurrentPage = CalculatePagination(result.TotalCount, limit, page)
	return result, nil
}
